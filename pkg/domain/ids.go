// Package domain holds identifier types and small value objects shared across
// the application. IDs are distinct named types over uuid.UUID so the compiler
// rejects cross-type assignment (an ApplicantID can never be passed where a
// SubmissionID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "veristage/pkg/domain-errors"
)

// ApplicantID identifies the person or organization whose onboarding record a
// workflow instance operates on.
type ApplicantID uuid.UUID

// SubmissionID identifies one assembled submission payload, minted when a
// workflow reaches its terminal state.
type SubmissionID uuid.UUID

func (id ApplicantID) String() string  { return uuid.UUID(id).String() }
func (id ApplicantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) String() string { return uuid.UUID(id).String() }
func (id SubmissionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewSubmissionID mints a fresh submission identifier.
func NewSubmissionID() SubmissionID {
	return SubmissionID(uuid.New())
}

// ParseApplicantID parses and validates an applicant ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs; this is enforced at every trust
// boundary (HTTP path params, JWT claims).
func ParseApplicantID(s string) (ApplicantID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return ApplicantID{}, err
	}
	return ApplicantID(parsed), nil
}

// ParseSubmissionID parses and validates a submission ID from its string form.
func ParseSubmissionID(s string) (SubmissionID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return SubmissionID{}, err
	}
	return SubmissionID(parsed), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}
