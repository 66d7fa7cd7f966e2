package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
	"agriproof/pkg/platform/httputil"
	"agriproof/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to a caller address. Implemented by
// the token service.
type TokenValidator interface {
	CallerAddress(tokenString string) (id.Address, error)
}

// RequireAuth validates the bearer token and places the caller address in the
// request context. Requests without a valid token never reach the handler.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || tokenString == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			caller, err := validator.CallerAddress(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
