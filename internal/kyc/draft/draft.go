// Package draft holds the mutable working record for one applicant's
// onboarding walk. A draft is exclusively owned by one workflow controller;
// field mutation is serialized by the owning controller, so the type itself
// carries no locking.
package draft

import (
	"time"

	"veristage/internal/kyc/schema"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
)

// Draft is the in-progress, not-yet-submitted record for one applicant.
type Draft struct {
	ApplicantID domain.ApplicantID
	AccountType domain.AccountType
	values      map[schema.FieldKey]any
	StartedAt   time.Time
}

// Seed carries the known identity attributes supplied by the session context,
// used to pre-fill the personal and contact stages.
type Seed struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

// New creates an empty draft for the applicant.
func New(applicantID domain.ApplicantID, accountType domain.AccountType) *Draft {
	return &Draft{
		ApplicantID: applicantID,
		AccountType: accountType,
		values:      make(map[schema.FieldKey]any),
		StartedAt:   time.Now(),
	}
}

// NewSeeded creates a draft pre-filled from known identity data.
func NewSeeded(applicantID domain.ApplicantID, accountType domain.AccountType, seed Seed) *Draft {
	d := New(applicantID, accountType)
	d.seed(schema.FieldFirstName, seed.FirstName)
	d.seed(schema.FieldLastName, seed.LastName)
	d.seed(schema.FieldPhone, seed.Phone)
	d.seed(schema.FieldEmail, seed.Email)
	return d
}

func (d *Draft) seed(key schema.FieldKey, value string) {
	if value != "" {
		d.values[key] = value
	}
}

// Set assigns a field value. The key must exist in the schema for the draft's
// account type, and the value type must match the field (string, or bool for
// attestation-style flags).
func (d *Draft) Set(key schema.FieldKey, value any) error {
	if !schema.HasField(key, d.AccountType) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown field key").WithFields(string(key))
	}
	switch value.(type) {
	case string:
		if schema.IsBoolean(key) {
			return dErrors.New(dErrors.CodeInvalidInput, "field expects a boolean value").WithFields(string(key))
		}
	case bool:
		if !schema.IsBoolean(key) {
			return dErrors.New(dErrors.CodeInvalidInput, "field expects a string value").WithFields(string(key))
		}
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unsupported field value type").WithFields(string(key))
	}
	d.values[key] = value
	return nil
}

// Clear removes a field value entirely.
func (d *Draft) Clear(key schema.FieldKey) {
	delete(d.values, key)
}

// Get returns the raw value for key, or nil when unset.
func (d *Draft) Get(key schema.FieldKey) any {
	return d.values[key]
}

// StringValue returns the field's string value, or "" when unset or boolean.
func (d *Draft) StringValue(key schema.FieldKey) string {
	s, _ := d.values[key].(string)
	return s
}

// BoolValue returns the field's bool value, or false when unset or non-bool.
func (d *Draft) BoolValue(key schema.FieldKey) bool {
	b, _ := d.values[key].(bool)
	return b
}

// Filled reports whether the field counts as filled: a non-empty string or a
// true boolean. Empty strings, unset keys, and false flags all count as empty.
func (d *Draft) Filled(key schema.FieldKey) bool {
	switch v := d.values[key].(type) {
	case string:
		return v != ""
	case bool:
		return v
	default:
		return false
	}
}

// FilledCount returns how many schema fields are filled.
func (d *Draft) FilledCount() int {
	n := 0
	for _, key := range schema.Fields(d.AccountType) {
		if d.Filled(key) {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of every set field, keyed by the stable field key.
// Used for the submission payload and for session snapshots; mutating the
// returned map does not affect the draft.
func (d *Draft) Snapshot() map[schema.FieldKey]any {
	out := make(map[schema.FieldKey]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Restore replaces the draft's field values from a snapshot, dropping any key
// the schema does not know for this account type.
func (d *Draft) Restore(snapshot map[schema.FieldKey]any) {
	d.values = make(map[schema.FieldKey]any, len(snapshot))
	for k, v := range snapshot {
		if !schema.HasField(k, d.AccountType) {
			continue
		}
		switch v.(type) {
		case string, bool:
			d.values[k] = v
		}
	}
}
