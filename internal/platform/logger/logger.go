package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger: structured JSON on stdout. Handlers and
// services take *slog.Logger and use the *Context variants so request-scoped
// attributes survive.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
