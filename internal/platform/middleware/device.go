package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// Device captures a coarse client description from the User-Agent header.
// Recorded on audit events so an applicant's trail shows which channel each
// action came from; never used for authorization.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.Header.Get("User-Agent"))
		name, version := ua.Browser()
		device := name
		if version != "" {
			device += "/" + version
		}
		if ua.Mobile() {
			device += " (mobile)"
		} else if ua.Bot() {
			device += " (bot)"
		}
		ctx := context.WithValue(r.Context(), contextKeyDevice{}, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDevice retrieves the device description from the context.
func GetDevice(ctx context.Context) string {
	if device, ok := ctx.Value(contextKeyDevice{}).(string); ok {
		return device
	}
	return ""
}

// WithDevice injects a device description into a context. Useful for service
// unit tests that don't run the full HTTP middleware chain.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, device)
}
