// Package compliance provides a fail-closed audit publisher for regulatory
// events.
//
// Publisher emits compliance events with synchronous, fail-closed semantics.
// The caller blocks until the write succeeds. If the write fails, an error is
// returned and the calling operation MUST fail.
//
// Use for: workflow_submitted, workflow_force_completed
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "veristage/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a compliance publisher. The store must be durable; the
// in-memory store is acceptable only in tests.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event to the audit store. Returns an
// error if persistence fails - the caller MUST fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ApplicantID.IsNil() {
		return fmt.Errorf("compliance event requires ApplicantID")
	}
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	event.Category = audit.CategoryCompliance
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"applicant_id", event.ApplicantID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}
	return nil
}
