package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	jwttoken "veristage/internal/jwt_token"
	"veristage/pkg/platform/secrets"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Context keys for storing authenticated identity information.
type contextKeyClaims struct{}

// GetClaims retrieves the validated token claims from the context.
func GetClaims(ctx context.Context) *jwttoken.Claims {
	claims, ok := ctx.Value(contextKeyClaims{}).(*jwttoken.Claims)
	if !ok {
		return nil
	}
	return claims
}

// WithClaims injects claims into a context. Useful for handler tests that
// don't run the full middleware chain.
func WithClaims(ctx context.Context, claims *jwttoken.Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims{}, claims)
}

func writeAuthError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + desc + `"}`))
}

// RequireAuth validates the bearer token and stores the claims in context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates the admin-assisted surface. An admin-role JWT passes;
// alternatively a bcrypt-verified admin API key in X-Admin-Key is accepted
// when a key hash is configured.
func RequireAdmin(validator JWTValidator, adminKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash != "" {
				if key := r.Header.Get("X-Admin-Key"); key != "" {
					if err := secrets.Verify(key, adminKeyHash); err == nil {
						next.ServeHTTP(w, r)
						return
					}
					logger.WarnContext(r.Context(), "forbidden - invalid admin key",
						"request_id", GetRequestID(r.Context()),
					)
					writeAuthError(w, http.StatusForbidden, "forbidden", "invalid admin key")
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if claims.Role != jwttoken.RoleAdmin {
				logger.WarnContext(r.Context(), "forbidden - admin role required",
					"applicant_id", claims.ApplicantID,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
