// Package ops provides a best-effort, non-blocking audit publisher for
// operational events. Events are buffered on a channel drained by the audit
// worker; when the buffer is full the event is dropped and counted rather
// than stalling the workflow.
package ops

import (
	"log/slog"
	"sync/atomic"
	"time"

	audit "veristage/pkg/platform/audit"
)

const defaultBufferSize = 256

// Publisher buffers operational events for asynchronous persistence.
type Publisher struct {
	outbox  chan audit.Event
	dropped atomic.Uint64
	logger  *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithBufferSize overrides the outbox capacity.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.outbox = make(chan audit.Event, n)
		}
	}
}

// WithLogger sets a logger for drop reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(opts ...Option) *Publisher {
	p := &Publisher{outbox: make(chan audit.Event, defaultBufferSize)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outbox exposes the channel the audit worker drains.
func (p *Publisher) Outbox() <-chan audit.Event {
	return p.outbox
}

// Emit enqueues an operational event without blocking. A full buffer drops
// the event; operational audit is best-effort.
func (p *Publisher) Emit(event audit.Event) {
	event.Category = audit.CategoryOperations
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.outbox <- event:
	default:
		n := p.dropped.Add(1)
		if p.logger != nil {
			p.logger.Warn("ops audit buffer full, event dropped",
				"action", event.Action,
				"dropped_total", n,
			)
		}
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}
