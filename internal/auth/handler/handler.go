package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agriproof/internal/auth"
	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/httputil"
	"agriproof/pkg/requestcontext"
)

// Service defines the interface for auth operations.
type Service interface {
	IssueToken(ctx context.Context, address id.Address, secret string) (*auth.IssueResult, error)
	RegisterCredential(ctx context.Context, address id.Address, secret string) error
}

// Handler wires auth endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an auth handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterPublic mounts the unauthenticated token exchange endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.HandleIssueToken)
}

// RegisterProtected mounts endpoints that require an authenticated caller.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/credentials", h.HandleRegisterCredential)
}

// TokenResponse is the HTTP response for POST /auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleIssueToken handles POST /auth/token requests.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.IssueToken(ctx, req.ParsedAddress(), req.Secret)
	if err != nil {
		// Failed exchanges are routine; log at warn without the address
		// echoed back in detail.
		h.logger.WarnContext(ctx, "token exchange failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// HandleRegisterCredential handles POST /auth/credentials requests.
func (h *Handler) HandleRegisterCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.RegisterCredential(ctx, req.ParsedAddress(), req.Secret); err != nil {
		h.logger.ErrorContext(ctx, "credential registration failed",
			"request_id", requestID,
			"address", req.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
