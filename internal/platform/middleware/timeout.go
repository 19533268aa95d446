package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds request handling. The workflow engine itself imposes no
// timeout on upstream calls; this is the explicit bound at the I/O boundary.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
