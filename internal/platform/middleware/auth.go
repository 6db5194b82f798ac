package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"didregistry/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens.
// The concrete implementation lives in internal/token; handlers and tests can
// substitute their own.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the claims the registry expects from the token validator.
// Caller is the authenticated identity every registry operation receives.
type Claims struct {
	Caller common.Address
}

// RequireAuth validates the Authorization header and injects the caller
// identity into the request context. Requests without a valid bearer token
// are rejected before reaching any handler.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			if claims.Caller == (common.Address{}) {
				logger.WarnContext(ctx, "unauthorized access - token without caller identity",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Token carries no caller identity")
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.Caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
