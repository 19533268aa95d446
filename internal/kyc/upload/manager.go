// Package upload tracks the asynchronous lifecycle of document uploads, one
// tracked operation per named slot. Each attempt carries a monotonic token so
// a resolution arriving for a superseded or cleared attempt is provably
// discarded instead of clobbering newer state.
package upload

import (
	"context"
	"io"
	"sync"

	"veristage/internal/kyc/schema"
	dErrors "veristage/pkg/domain-errors"
	"veristage/pkg/platform/sentinel"
)

// Status is the lifecycle state of one document slot.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// SlotState is a read-only view of one slot, exposed for rendering and for
// the step validator. Reference is only meaningful when Status is succeeded.
type SlotState struct {
	Status    Status
	Reference string
}

// DocumentClient sends a file to the document-storage service and returns the
// stable reference the service minted for it.
type DocumentClient interface {
	Upload(ctx context.Context, slot schema.SlotName, filename string, contents io.Reader) (string, error)
}

// ResolveFunc is invoked after an attempt resolves successfully so the owning
// draft's field can be kept in lockstep with the slot state.
type ResolveFunc func(slot schema.SlotName, reference string)

type slotEntry struct {
	status    Status
	reference string
	// attempt is bumped on every Begin and Clear. A resolution only applies
	// when its captured attempt still matches; anything else lost the race.
	attempt uint64
}

// Manager owns the slot map for one workflow instance.
type Manager struct {
	mu        sync.Mutex
	client    DocumentClient
	slots     map[schema.SlotName]*slotEntry
	onResolve ResolveFunc
}

// NewManager creates a manager backed by the given document client. onResolve
// may be nil when no draft lockstep is needed (tests).
func NewManager(client DocumentClient, onResolve ResolveFunc) *Manager {
	return &Manager{
		client:    client,
		slots:     make(map[schema.SlotName]*slotEntry),
		onResolve: onResolve,
	}
}

// Begin starts an upload for the slot and blocks until it resolves. Callers
// wanting fire-and-forget semantics run it on their own goroutine. A second
// Begin for the same slot supersedes the prior attempt: whichever attempt was
// issued last is the one whose outcome the slot reflects, regardless of the
// order the remote calls return in.
func (m *Manager) Begin(ctx context.Context, slot schema.SlotName, filename string, contents io.Reader) error {
	if _, ok := schema.SlotField[slot]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown document slot").WithFields(string(slot))
	}

	m.mu.Lock()
	entry, ok := m.slots[slot]
	if !ok {
		entry = &slotEntry{status: StatusIdle}
		m.slots[slot] = entry
	}
	entry.attempt++
	token := entry.attempt
	entry.status = StatusUploading
	entry.reference = ""
	m.mu.Unlock()

	reference, err := m.client.Upload(ctx, slot, filename, contents)

	m.mu.Lock()
	if entry.attempt != token {
		// A newer attempt (or a clear) replaced this one while the remote
		// call was in flight; its outcome must not be applied.
		m.mu.Unlock()
		return sentinel.ErrSuperseded
	}
	if err != nil {
		entry.status = StatusFailed
		entry.reference = ""
		m.mu.Unlock()
		return dErrors.Wrap(dErrors.CodeUploadFailed, "document upload failed", err).WithFields(string(slot))
	}
	entry.status = StatusSucceeded
	entry.reference = reference
	m.mu.Unlock()

	if m.onResolve != nil {
		m.onResolve(slot, reference)
	}
	return nil
}

// Clear resets a slot to idle, discarding any in-flight attempt's future
// outcome. Clearing an already-idle or untracked slot is a no-op.
func (m *Manager) Clear(slot schema.SlotName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.slots[slot]
	if !ok {
		return
	}
	entry.attempt++
	entry.status = StatusIdle
	entry.reference = ""
}

// State returns the current view of one slot. Untracked slots are idle.
func (m *Manager) State(slot schema.SlotName) SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.slots[slot]
	if !ok {
		return SlotState{Status: StatusIdle}
	}
	return SlotState{Status: entry.status, Reference: entry.reference}
}

// States returns a snapshot of every known slot plus idle entries for schema
// slots that were never touched, so callers always see the full slot set.
func (m *Manager) States() map[schema.SlotName]SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[schema.SlotName]SlotState, len(schema.SlotField))
	for slot := range schema.SlotField {
		out[slot] = SlotState{Status: StatusIdle}
	}
	for slot, entry := range m.slots {
		out[slot] = SlotState{Status: entry.status, Reference: entry.reference}
	}
	return out
}

// References returns the resolved reference per slot, succeeded slots only.
func (m *Manager) References() map[schema.SlotName]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[schema.SlotName]string)
	for slot, entry := range m.slots {
		if entry.status == StatusSucceeded {
			out[slot] = entry.reference
		}
	}
	return out
}
