package memory

import (
	"context"
	"sync"

	id "veristage/pkg/domain"
	audit "veristage/pkg/platform/audit"
)

// Store keeps audit events in memory. Used by tests and local development;
// production deployments wire the Postgres outbox or the Kafka sink.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByApplicant returns the events recorded for one applicant, in append
// order.
func (s *Store) ListByApplicant(_ context.Context, applicantID id.ApplicantID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ApplicantID == applicantID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event. Test helper.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
