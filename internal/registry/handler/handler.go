package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"agriproof/internal/registry/models"
	"agriproof/internal/registry/service"
	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
	"agriproof/pkg/platform/httputil"
	"agriproof/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	Enroll(ctx context.Context, deadlineDays int64) (*models.Enrollment, error)
	SubmitClaim(ctx context.Context, proofHash string) (*models.Claim, error)
	VerifyClaim(ctx context.Context, farmerID id.Address, approve bool) (*models.Claim, error)
	AddVerifier(ctx context.Context, verifierID id.Address) error
	RemoveVerifier(ctx context.Context, verifierID id.Address) error
	GetClaim(ctx context.Context, farmerID id.Address) (*models.Claim, error)
	GetEnrollment(ctx context.Context, farmerID id.Address) (*models.Enrollment, error)
	IsVerifier(ctx context.Context, verifierID id.Address) (bool, error)
	Admin(ctx context.Context) (id.Address, error)
	ListClaims(ctx context.Context, offset, limit int) ([]*models.Claim, error)
	Export(ctx context.Context) (*service.Snapshot, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registry", func(r chi.Router) {
		r.Post("/enrollments", h.HandleEnroll)
		r.Get("/enrollments/{farmerID}", h.HandleGetEnrollment)
		r.Post("/claims", h.HandleSubmitClaim)
		r.Get("/claims", h.HandleListClaims)
		r.Get("/claims/{farmerID}", h.HandleGetClaim)
		r.Post("/claims/{farmerID}/verify", h.HandleVerifyClaim)
		r.Post("/verifiers", h.HandleAddVerifier)
		r.Delete("/verifiers/{verifierID}", h.HandleRemoveVerifier)
		r.Get("/verifiers/{verifierID}", h.HandleGetVerifier)
		r.Get("/admin", h.HandleGetAdmin)
		r.Get("/export", h.HandleExport)
	})
}

// HandleEnroll handles POST /registry/enrollments requests. The farmer
// identity comes from the authenticated caller, never the body.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	enrollment, err := h.service.Enroll(ctx, req.DeadlineDays)
	if err != nil {
		h.logger.ErrorContext(ctx, "enrollment failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromEnrollment(enrollment))
}

// HandleSubmitClaim handles POST /registry/claims requests. The farmer
// identity comes from the authenticated caller, never the body.
func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.SubmitClaim(ctx, req.ProofHash)
	if err != nil {
		h.logger.ErrorContext(ctx, "claim submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "claim submitted",
		"request_id", requestID,
		"farmer_id", claim.FarmerID.Short(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromClaim(claim))
}

// HandleVerifyClaim handles POST /registry/claims/{farmerID}/verify requests.
func (h *Handler) HandleVerifyClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	farmerID, ok := h.pathAddress(w, r, "farmerID")
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.VerifyClaim(ctx, farmerID, *req.Approve)
	if err != nil {
		h.logger.ErrorContext(ctx, "claim verification failed",
			"request_id", requestID,
			"farmer_id", farmerID.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleAddVerifier handles POST /registry/verifiers requests.
func (h *Handler) HandleAddVerifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddVerifierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.AddVerifier(ctx, req.ParsedVerifierID()); err != nil {
		h.logger.ErrorContext(ctx, "add verifier failed",
			"request_id", requestID,
			"verifier_id", req.VerifierID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, VerifierStatusResponse{
		VerifierID: req.VerifierID,
		IsVerifier: true,
	})
}

// HandleRemoveVerifier handles DELETE /registry/verifiers/{verifierID}.
func (h *Handler) HandleRemoveVerifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verifierID, ok := h.pathAddress(w, r, "verifierID")
	if !ok {
		return
	}

	if err := h.service.RemoveVerifier(ctx, verifierID); err != nil {
		h.logger.ErrorContext(ctx, "remove verifier failed",
			"request_id", requestcontext.RequestID(ctx),
			"verifier_id", verifierID.Short(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetVerifier handles GET /registry/verifiers/{verifierID}.
func (h *Handler) HandleGetVerifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verifierID, ok := h.pathAddress(w, r, "verifierID")
	if !ok {
		return
	}

	isVerifier, err := h.service.IsVerifier(ctx, verifierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifierStatusResponse{
		VerifierID: verifierID.String(),
		IsVerifier: isVerifier,
	})
}

// HandleGetClaim handles GET /registry/claims/{farmerID}.
func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := h.pathAddress(w, r, "farmerID")
	if !ok {
		return
	}

	claim, err := h.service.GetClaim(r.Context(), farmerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleGetEnrollment handles GET /registry/enrollments/{farmerID}.
func (h *Handler) HandleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := h.pathAddress(w, r, "farmerID")
	if !ok {
		return
	}

	enrollment, err := h.service.GetEnrollment(r.Context(), farmerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEnrollment(enrollment))
}

// HandleListClaims handles GET /registry/claims requests.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	claims, err := h.service.ListClaims(ctx, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if limit <= 0 {
		limit = service.DefaultPageSize
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims, offset, limit))
}

// HandleGetAdmin handles GET /registry/admin requests.
func (h *Handler) HandleGetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Admin(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Admin: admin.String()})
}

// HandleExport handles GET /registry/export requests.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, err := h.service.Export(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "registry export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot))
}

// pathAddress parses an address from a chi URL parameter, writing the error
// response on failure.
func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request, param string) (id.Address, bool) {
	addr, err := id.ParseAddress(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return addr, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an integer", name)
	}
	return v, nil
}
