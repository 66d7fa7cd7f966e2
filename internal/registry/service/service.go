// Package service implements the claim-registry business rules: admin
// bootstrap, farmer enrollment windows, single-claim submission, and the
// verifier-gated pending to approved/rejected transition.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"agriproof/internal/audit"
	"agriproof/internal/registry/metrics"
	"agriproof/internal/registry/models"
	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
	"agriproof/pkg/platform/sentinel"
	"agriproof/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_store.go -package=mocks

// Store persists registry state: the admin record, enrollments, and claims.
// Implementations report sentinel errors; the service translates them into
// the registry error taxonomy.
type Store interface {
	InitAdmin(ctx context.Context, admin id.Address) error
	Admin(ctx context.Context) (id.Address, error)

	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	GetEnrollment(ctx context.Context, farmerID id.Address) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context) ([]*models.Enrollment, error)

	CreateClaim(ctx context.Context, claim *models.Claim) error
	GetClaim(ctx context.Context, farmerID id.Address) (*models.Claim, error)
	// MutateClaim runs validate then mutate atomically against the stored
	// claim, so the pending check and the terminal transition cannot
	// interleave with a concurrent verifier.
	MutateClaim(ctx context.Context, farmerID id.Address, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error)
	ListClaims(ctx context.Context, offset, limit int) ([]*models.Claim, error)
}

// VerifierStore persists the verifier set. Split from Store so the set can
// live in Redis while records stay in Postgres.
type VerifierStore interface {
	AddVerifier(ctx context.Context, verifierID id.Address) error
	RemoveVerifier(ctx context.Context, verifierID id.Address) error
	IsVerifier(ctx context.Context, verifierID id.Address) (bool, error)
	ListVerifiers(ctx context.Context) ([]id.Address, error)
}

// Pagination bounds for ListClaims.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Service orchestrates registry operations.
type Service struct {
	store     Store
	verifiers VerifierStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	auditPub  audit.Publisher
	tracer    trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(pub audit.Publisher) Option {
	return func(s *Service) { s.auditPub = pub }
}

// New creates a registry service backed by the given stores.
func New(store Store, verifiers VerifierStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		verifiers: verifiers,
		logger:    slog.Default(),
		tracer:    otel.Tracer("agriproof/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize records the admin address. Idempotent for the same address;
// a different address after bootstrap is a conflict.
func (s *Service) Initialize(ctx context.Context, admin id.Address) error {
	ctx, span := s.tracer.Start(ctx, "registry.Initialize")
	defer span.End()

	if err := s.store.InitAdmin(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "registry already initialized with a different admin")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "initialize registry")
	}

	s.logger.InfoContext(ctx, "registry initialized", "admin", admin.Short())
	return nil
}

// Admin returns the registry admin address.
func (s *Service) Admin(ctx context.Context) (id.Address, error) {
	admin, err := s.store.Admin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "registry not initialized")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "get admin")
	}
	return admin, nil
}

// Enroll registers the caller as a farmer with a claim-submission window of
// deadlineDays days from now. Enrollment is self-service: any authenticated
// identity may enroll itself, at most once.
func (s *Service) Enroll(ctx context.Context, deadlineDays int64) (*models.Enrollment, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Enroll")
	defer span.End()

	enrollment, err := s.enroll(ctx, deadlineDays)
	s.record("enroll", err)
	return enrollment, err
}

func (s *Service) enroll(ctx context.Context, deadlineDays int64) (*models.Enrollment, error) {
	farmerID := requestcontext.Caller(ctx)
	if farmerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}

	enrollment, err := models.NewEnrollment(farmerID, deadlineDays, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyEnrolled, "farmer %s is already enrolled", farmerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create enrollment")
	}

	s.logger.InfoContext(ctx, "farmer enrolled",
		"farmer_id", farmerID.Short(),
		"claim_deadline", enrollment.ClaimDeadline,
	)
	s.emit(ctx, audit.Event{
		Action: audit.ActionFarmerEnrolled,
		Actor:  farmerID,
	})
	return enrollment, nil
}

// SubmitClaim records the farmer's single damage claim. The caller must be
// the enrolled farmer, the submission window must still be open, and no
// prior claim may exist.
func (s *Service) SubmitClaim(ctx context.Context, proofHash string) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "registry.SubmitClaim")
	defer span.End()
	start := time.Now()

	claim, err := s.submitClaim(ctx, proofHash)
	s.record("submit_claim", err)
	if s.metrics != nil {
		s.metrics.ObserveSubmitClaim(start)
	}
	return claim, err
}

func (s *Service) submitClaim(ctx context.Context, proofHash string) (*models.Claim, error) {
	farmerID := requestcontext.Caller(ctx)
	if farmerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}

	enrollment, err := s.store.GetEnrollment(ctx, farmerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotEnrolled, "farmer %s is not enrolled", farmerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get enrollment")
	}

	now := requestcontext.Now(ctx)
	if !enrollment.Open(now) {
		return nil, dErrors.New(dErrors.CodeDeadlinePassed, "claim submission deadline has passed")
	}

	if _, err := s.store.GetClaim(ctx, farmerID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeDuplicateClaim, "farmer %s already submitted a claim", farmerID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get claim")
	}

	claim, err := models.NewClaim(farmerID, proofHash, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateClaim(ctx, claim); err != nil {
		// Lost a race with another submission by the same farmer.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeDuplicateClaim, "farmer %s already submitted a claim", farmerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create claim")
	}

	s.logger.InfoContext(ctx, "claim submitted", "farmer_id", farmerID.Short())
	s.emit(ctx, audit.Event{
		Action: audit.ActionClaimSubmitted,
		Actor:  farmerID,
	})
	return claim, nil
}

// VerifyClaim moves a pending claim to approved or rejected. The caller must
// be a registered verifier and the transition happens at most once.
func (s *Service) VerifyClaim(ctx context.Context, farmerID id.Address, approve bool) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "registry.VerifyClaim",
		trace.WithAttributes(
			attribute.String("farmer_id", farmerID.String()),
			attribute.Bool("approve", approve),
		))
	defer span.End()
	start := time.Now()

	claim, err := s.verifyClaim(ctx, farmerID, approve)
	s.record("verify_claim", err)
	if s.metrics != nil {
		s.metrics.ObserveVerifyClaim(start)
	}
	return claim, err
}

func (s *Service) verifyClaim(ctx context.Context, farmerID id.Address, approve bool) (*models.Claim, error) {
	verifierID, err := s.requireVerifier(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err := s.store.MutateClaim(ctx, farmerID,
		func(c *models.Claim) error { return c.CanVerify() },
		func(c *models.Claim) { c.ApplyVerification(verifierID, approve, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeClaimNotFound, "no claim found for farmer %s", farmerID)
		}
		if dErrors.HasCode(err, dErrors.CodeClaimNotPending) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verify claim")
	}

	decision := models.StatusRejected
	if approve {
		decision = models.StatusApproved
	}
	s.logger.InfoContext(ctx, "claim verified",
		"farmer_id", farmerID.Short(),
		"verifier_id", verifierID.Short(),
		"decision", decision,
	)
	s.emit(ctx, audit.Event{
		Action:   audit.ActionClaimVerified,
		Actor:    verifierID,
		Subject:  farmerID,
		Decision: decision.String(),
	})
	return claim, nil
}

// AddVerifier registers a verifier address. Admin only.
func (s *Service) AddVerifier(ctx context.Context, verifierID id.Address) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddVerifier",
		trace.WithAttributes(attribute.String("verifier_id", verifierID.String())))
	defer span.End()

	err := s.addVerifier(ctx, verifierID)
	s.record("add_verifier", err)
	return err
}

func (s *Service) addVerifier(ctx context.Context, verifierID id.Address) error {
	caller, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	if err := s.verifiers.AddVerifier(ctx, verifierID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeVerifierExists, "verifier %s is already registered", verifierID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "add verifier")
	}

	s.logger.InfoContext(ctx, "verifier added", "verifier_id", verifierID.Short())
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVerifierAdded,
		Actor:   caller,
		Subject: verifierID,
	})
	return nil
}

// RemoveVerifier revokes a verifier address. Admin only. Decisions already
// made by the verifier stand.
func (s *Service) RemoveVerifier(ctx context.Context, verifierID id.Address) error {
	ctx, span := s.tracer.Start(ctx, "registry.RemoveVerifier",
		trace.WithAttributes(attribute.String("verifier_id", verifierID.String())))
	defer span.End()

	err := s.removeVerifier(ctx, verifierID)
	s.record("remove_verifier", err)
	return err
}

func (s *Service) removeVerifier(ctx context.Context, verifierID id.Address) error {
	caller, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	if err := s.verifiers.RemoveVerifier(ctx, verifierID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeVerifierNotFound, "verifier %s is not registered", verifierID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "remove verifier")
	}

	s.logger.InfoContext(ctx, "verifier removed", "verifier_id", verifierID.Short())
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVerifierRemoved,
		Actor:   caller,
		Subject: verifierID,
	})
	return nil
}

// GetClaim returns the claim for a farmer.
func (s *Service) GetClaim(ctx context.Context, farmerID id.Address) (*models.Claim, error) {
	claim, err := s.store.GetClaim(ctx, farmerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeClaimNotFound, "no claim found for farmer %s", farmerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get claim")
	}
	return claim, nil
}

// GetEnrollment returns the enrollment for a farmer.
func (s *Service) GetEnrollment(ctx context.Context, farmerID id.Address) (*models.Enrollment, error) {
	enrollment, err := s.store.GetEnrollment(ctx, farmerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeEnrollmentNotFound, "farmer %s is not enrolled", farmerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get enrollment")
	}
	return enrollment, nil
}

// IsVerifier reports whether the address is in the verifier set.
func (s *Service) IsVerifier(ctx context.Context, verifierID id.Address) (bool, error) {
	ok, err := s.verifiers.IsVerifier(ctx, verifierID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check verifier")
	}
	return ok, nil
}

// ListClaims returns claims in submission order. limit of zero applies
// DefaultPageSize; requests above MaxPageSize are clamped.
func (s *Service) ListClaims(ctx context.Context, offset, limit int) ([]*models.Claim, error) {
	if offset < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	claims, err := s.store.ListClaims(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list claims")
	}
	return claims, nil
}

// Snapshot is a full registry export for audits and insurer reconciliation.
type Snapshot struct {
	Admin       id.Address           `json:"admin"`
	Verifiers   []id.Address         `json:"verifiers"`
	Enrollments []*models.Enrollment `json:"enrollments"`
	Claims      []*models.Claim      `json:"claims"`
}

// Export assembles a snapshot of the whole registry. The four reads fan out
// concurrently; any failure aborts the export.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Export")
	defer span.End()

	var snapshot Snapshot
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		admin, err := s.store.Admin(gCtx)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("export admin: %w", err)
		}
		snapshot.Admin = admin
		return nil
	})
	g.Go(func() error {
		verifiers, err := s.verifiers.ListVerifiers(gCtx)
		if err != nil {
			return fmt.Errorf("export verifiers: %w", err)
		}
		snapshot.Verifiers = verifiers
		return nil
	})
	g.Go(func() error {
		enrollments, err := s.store.ListEnrollments(gCtx)
		if err != nil {
			return fmt.Errorf("export enrollments: %w", err)
		}
		snapshot.Enrollments = enrollments
		return nil
	})
	g.Go(func() error {
		claims, err := s.store.ListClaims(gCtx, 0, -1)
		if err != nil {
			return fmt.Errorf("export claims: %w", err)
		}
		snapshot.Claims = claims
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "export registry")
	}
	return &snapshot, nil
}

// requireAdmin resolves the caller and checks it against the stored admin.
func (s *Service) requireAdmin(ctx context.Context) (id.Address, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}
	admin, err := s.store.Admin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotAdmin, "registry not initialized")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "get admin")
	}
	if !caller.Equal(admin) {
		return "", dErrors.New(dErrors.CodeNotAdmin, "caller is not the registry admin")
	}
	return caller, nil
}

// requireVerifier resolves the caller and checks verifier-set membership.
func (s *Service) requireVerifier(ctx context.Context) (id.Address, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}
	ok, err := s.verifiers.IsVerifier(ctx, caller)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "check verifier")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeNotVerifier, "caller is not a registered verifier")
	}
	return caller, nil
}

// record counts an operation outcome. Errors are labelled by code so the
// dashboard can separate precondition failures from real faults.
func (s *Service) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.RecordOperation(operation, outcome)
}

// emit publishes an audit event. Failures are logged, never surfaced: the
// state change has already committed.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
