// Package auth exchanges registry credentials for bearer tokens. The admin
// credential is seeded at startup; farmer and verifier credentials are
// registered by the admin.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agriproof/internal/audit"
	"agriproof/internal/auth/secrets"
	"agriproof/internal/auth/token"
	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
	"agriproof/pkg/platform/sentinel"
	"agriproof/pkg/requestcontext"
)

// AdminLookup resolves the registry admin for credential-management
// authorization. Satisfied by the registry service.
type AdminLookup interface {
	Admin(ctx context.Context) (id.Address, error)
}

// Service implements credential registration and token issuance.
type Service struct {
	store    CredentialStore
	tokens   *token.Service
	admins   AdminLookup
	tokenTTL time.Duration
	logger   *slog.Logger
	auditPub audit.Publisher
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub audit.Publisher) Option {
	return func(s *Service) { s.auditPub = pub }
}

// New creates an auth service.
func New(store CredentialStore, tokens *token.Service, admins AdminLookup, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tokens:   tokens,
		admins:   admins,
		tokenTTL: tokenTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed installs a credential directly, bypassing admin authorization. Used
// once at startup for the admin's own credential.
func (s *Service) Seed(ctx context.Context, address id.Address, secret string) error {
	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	return s.store.SetCredential(ctx, address, hash)
}

// RegisterCredential stores a credential for an address. Admin only.
func (s *Service) RegisterCredential(ctx context.Context, address id.Address, secret string) error {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}
	admin, err := s.admins.Admin(ctx)
	if err != nil {
		return err
	}
	if !caller.Equal(admin) {
		return dErrors.New(dErrors.CodeNotAdmin, "caller is not the registry admin")
	}

	hash, err := secrets.Hash(secret)
	if err != nil {
		return err
	}
	if err := s.store.SetCredential(ctx, address, hash); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store credential")
	}

	s.logger.InfoContext(ctx, "credential registered", "address", address.Short())
	s.emit(ctx, audit.Event{
		Action:  audit.ActionCredentialRegistered,
		Actor:   caller,
		Subject: address,
	})
	return nil
}

// IssueResult is the outcome of a successful token exchange.
type IssueResult struct {
	Token     string
	ExpiresAt time.Time
}

// IssueToken exchanges a credential for a bearer token. Unknown addresses and
// wrong secrets are indistinguishable to the caller.
func (s *Service) IssueToken(ctx context.Context, address id.Address, secret string) (*IssueResult, error) {
	hash, err := s.store.GetCredential(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get credential")
	}
	if err := secrets.Verify(secret, hash); err != nil {
		return nil, err
	}

	tokenString, expiresAt, err := s.tokens.Issue(address, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}

	s.logger.InfoContext(ctx, "token issued", "address", address.Short())
	s.emit(ctx, audit.Event{
		Action: audit.ActionTokenIssued,
		Actor:  address,
	})
	return &IssueResult{Token: tokenString, ExpiresAt: expiresAt}, nil
}

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
