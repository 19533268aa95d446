// Package validate implements the per-stage completion predicate that gates
// forward navigation. It is pure: given the draft, the current slot states,
// and the account type, it reports whether a stage may advance and names
// exactly which requirements are unmet.
package validate

import (
	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/upload"
)

// StageResult reports the outcome of checking one stage. MissingFields and
// MissingSlots name every unmet requirement so failures never reduce to a
// generic "request failed".
type StageResult struct {
	Stage         schema.StageID
	Complete      bool
	MissingFields []schema.FieldKey
	MissingSlots  []schema.SlotName
}

// Missing flattens the unmet requirements into strings for error envelopes.
func (r StageResult) Missing() []string {
	out := make([]string, 0, len(r.MissingFields)+len(r.MissingSlots))
	for _, f := range r.MissingFields {
		out = append(out, string(f))
	}
	for _, s := range r.MissingSlots {
		out = append(out, string(s))
	}
	return out
}

// StageComplete checks one stage against the required-field table for the
// draft's account type. A required document slot counts as satisfied only
// when its upload state is succeeded: a slot still uploading, failed, or
// holding a stale reference from a cleared attempt does not gate through.
func StageComplete(stage schema.StageID, d *draft.Draft, slots map[schema.SlotName]upload.SlotState) StageResult {
	result := StageResult{Stage: stage}
	if !schema.ValidStage(stage) {
		return result
	}

	for _, key := range schema.RequiredFields(stage, d.AccountType) {
		if !d.Filled(key) {
			result.MissingFields = append(result.MissingFields, key)
		}
	}
	for _, slot := range schema.RequiredSlots(stage) {
		if slots[slot].Status != upload.StatusSucceeded {
			result.MissingSlots = append(result.MissingSlots, slot)
		}
	}

	result.Complete = len(result.MissingFields) == 0 && len(result.MissingSlots) == 0
	return result
}
