// Package progress derives the coarse 0-100 completion percentage shown to
// applicants and the provisional per-stage markers shown in the admin view.
// The score and the step validator intentionally diverge: the score is a
// monotonic-ish feedback signal, not a navigation gate.
package progress

import (
	"math"

	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/schema"
)

// Score returns the percentage of schema fields that are filled, rounded to
// the nearest integer. Never persisted; recomputed on every read.
func Score(d *draft.Draft) int {
	total := len(schema.Fields(d.AccountType))
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(d.FilledCount()) / float64(total)))
}

// StageMarkerDone reports the provisional "completed" marker for a stage in
// the admin view: the score has crossed the stage's share of the full walk.
// Deliberately coarser than the validator, so the UI can show provisional
// completion before validators are re-run. Odd-stage shares are fractional
// (stage one is 12.5), so the threshold rounds up: an integer score below the
// share must not flip the marker.
func StageMarkerDone(score int, stage schema.StageID) bool {
	threshold := (int(stage)*100 + schema.StageCount - 1) / schema.StageCount
	return score >= threshold
}
