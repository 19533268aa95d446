// Package navigator implements the stage state machine: current stage,
// validator-gated forward transitions, unconditional backward transitions,
// admin free jumps, and the terminal submitted state. The navigator holds no
// draft or upload state; the owning controller supplies the gate.
package navigator

import (
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/validate"
	dErrors "veristage/pkg/domain-errors"
)

// Gate evaluates whether a stage is complete enough to advance past.
type Gate interface {
	Check(stage schema.StageID) validate.StageResult
}

// Navigator tracks the current stage of one workflow instance.
type Navigator struct {
	current   schema.StageID
	submitted bool
	// allowJump is granted to admin-assisted controllers only; self-service
	// instances walk the stages linearly.
	allowJump bool
}

// New returns a navigator positioned at the first stage.
func New(allowJump bool) *Navigator {
	return &Navigator{current: schema.StagePersonal, allowJump: allowJump}
}

// Current returns the current stage.
func (n *Navigator) Current() schema.StageID { return n.current }

// Submitted reports whether the workflow reached its terminal state.
func (n *Navigator) Submitted() bool { return n.submitted }

// CanRetreat reports whether a backward transition is possible.
func (n *Navigator) CanRetreat() bool {
	return !n.submitted && n.current > schema.StagePersonal
}

// AtTerminalStage reports whether the navigator sits at the submission
// boundary.
func (n *Navigator) AtTerminalStage() bool {
	return n.current == schema.StageDepository
}

// Advance moves to the next stage if the gate passes for the current one.
// From the terminal stage it does not move: the controller reacts to
// AtTerminalStage and performs submission instead. An incomplete stage yields
// a ValidationIncomplete error naming the unmet requirements; the navigator's
// position is unchanged.
func (n *Navigator) Advance(gate Gate) (validate.StageResult, error) {
	if n.submitted {
		return validate.StageResult{}, dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	result := gate.Check(n.current)
	if !result.Complete {
		return result, dErrors.New(dErrors.CodeValidationIncomplete, "stage requirements not met").
			WithFields(result.Missing()...)
	}
	if n.current < schema.StageDepository {
		n.current++
	}
	return result, nil
}

// Retreat moves one stage back. Unconditional: no validation gate applies
// going backward.
func (n *Navigator) Retreat() error {
	if n.submitted {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	if n.current <= schema.StagePersonal {
		return dErrors.New(dErrors.CodeInvalidState, "already at the first stage")
	}
	n.current--
	return nil
}

// JumpTo relocates to an arbitrary valid stage. Only jump-enabled (admin)
// navigators may call it; the jump bypasses the navigation gate but never the
// terminal submission validation.
func (n *Navigator) JumpTo(stage schema.StageID) error {
	if n.submitted {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	if !n.allowJump {
		return dErrors.New(dErrors.CodeForbidden, "free stage navigation is not available in this mode")
	}
	if !schema.ValidStage(stage) {
		return dErrors.New(dErrors.CodeInvalidInput, "stage id out of range")
	}
	n.current = stage
	return nil
}

// MarkSubmitted transitions to the terminal state. After this the navigator
// is inert until the workflow is re-opened with a fresh draft.
func (n *Navigator) MarkSubmitted() {
	n.submitted = true
}
