// Package store holds the persistence around live workflow instances: the
// in-memory session registry, the Redis draft-snapshot cache, and the
// Postgres submission archive. The upstream KYC record service remains the
// system of record; everything here is session continuity and retention.
package store

import (
	"context"
	"sync"

	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

// SessionStore registers the live controller per applicant. Each controller
// exclusively owns its draft; the registry only hands out the one instance
// so no two callers ever manipulate the same draft concurrently.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.ApplicantID]*workflow.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domain.ApplicantID]*workflow.Controller)}
}

// Put registers a controller for the applicant, replacing any prior session.
func (s *SessionStore) Put(_ context.Context, ctrl *workflow.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ctrl.ApplicantID()] = ctrl
	return nil
}

// Find returns the live controller for the applicant.
func (s *SessionStore) Find(_ context.Context, applicantID domain.ApplicantID) (*workflow.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[applicantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return ctrl, nil
}

// Delete discards the applicant's session. Deleting a missing session is a
// no-op.
func (s *SessionStore) Delete(_ context.Context, applicantID domain.ApplicantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, applicantID)
	return nil
}
