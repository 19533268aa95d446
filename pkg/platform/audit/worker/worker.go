package worker

import (
	"context"
	"log/slog"

	audit "veristage/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. It decouples
// operational audit from the request path: a slow store never blocks a
// workflow transition.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. Persistence failures of
// operational events are logged and skipped; compliance events never pass
// through here (they are written synchronously by their publisher).
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"applicant_id", event.ApplicantID,
					"error", err,
				)
			}
		}
	}
}
