package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. Only the header read is bounded here:
// document uploads stream bodies of unknown size, so per-request deadlines
// are left to the route middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
