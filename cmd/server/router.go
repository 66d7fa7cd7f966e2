package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agriproof/internal/auth"
	authhandler "agriproof/internal/auth/handler"
	"agriproof/internal/auth/token"
	"agriproof/internal/platform/middleware"
	registryhandler "agriproof/internal/registry/handler"
	"agriproof/internal/registry/service"
	"agriproof/pkg/platform/httputil"
)

// newRouter assembles the middleware chain and mounts all endpoints.
// Reads are public; mutations require a bearer token.
func newRouter(log *slog.Logger, tokens *token.Service, registrySvc *service.Service, authSvc *auth.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)

	registryH := registryhandler.New(registrySvc, log)
	authH := authhandler.New(authSvc, log)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authH.RegisterPublic(r)

	// Public reads.
	r.Group(func(r chi.Router) {
		r.Get("/registry/admin", registryH.HandleGetAdmin)
		r.Get("/registry/export", registryH.HandleExport)
		r.Get("/registry/claims", registryH.HandleListClaims)
		r.Get("/registry/claims/{farmerID}", registryH.HandleGetClaim)
		r.Get("/registry/enrollments/{farmerID}", registryH.HandleGetEnrollment)
		r.Get("/registry/verifiers/{verifierID}", registryH.HandleGetVerifier)
	})

	// Authenticated mutations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))

		r.Post("/registry/enrollments", registryH.HandleEnroll)
		r.Post("/registry/claims", registryH.HandleSubmitClaim)
		r.Post("/registry/claims/{farmerID}/verify", registryH.HandleVerifyClaim)
		r.Post("/registry/verifiers", registryH.HandleAddVerifier)
		r.Delete("/registry/verifiers/{verifierID}", registryH.HandleRemoveVerifier)

		authH.RegisterProtected(r)
	})

	return r
}
