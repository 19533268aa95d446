// Package httptransport assembles the service's HTTP surface: the applicant
// and admin workflow routers plus the operational endpoints.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veristage/internal/kyc/handler"
)

// Registrar is implemented by each domain handler that mounts its own
// sub-router with its own middleware chain.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all public endpoints. Domain handlers own their middleware
// chains; only the operational endpoints are mounted bare.
func NewRouter(kyc *handler.Handler, admin *handler.AdminHandler, extra ...Registrar) http.Handler {
	root := chi.NewRouter()

	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	admin.Register(root)
	kyc.Register(root)
	for _, reg := range extra {
		reg.Register(root)
	}
	return root
}
