package handler

import (
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/validate"
	"veristage/internal/kyc/workflow"
)

// WorkflowResponse is the full rendering of a live workflow, returned by the
// read endpoint and by every mutating endpoint so clients never need a
// follow-up fetch.
type WorkflowResponse struct {
	ApplicantID   string                 `json:"applicant_id"`
	AccountType   string                 `json:"account_type"`
	Mode          string                 `json:"mode"`
	CurrentStage  int                    `json:"current_stage"`
	Submitted     bool                   `json:"submitted"`
	ProgressScore int                    `json:"progress_score"`
	CanAdvance    bool                   `json:"can_advance"`
	CanRetreat    bool                   `json:"can_retreat"`
	Stages        []StageMarkerResponse  `json:"stages"`
	StageCheck    StageCheckResponse     `json:"stage_check"`
	Fields        map[string]any         `json:"fields"`
	Documents     []DocumentSlotResponse `json:"documents"`
}

// StageMarkerResponse carries the two completion signals for one stage.
type StageMarkerResponse struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	MarkerDone bool   `json:"marker_done"`
	Validated  bool   `json:"validated"`
}

// StageCheckResponse reports the current stage's validation outcome.
type StageCheckResponse struct {
	Stage         int      `json:"stage"`
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
	MissingSlots  []string `json:"missing_slots,omitempty"`
}

// DocumentSlotResponse reports one upload slot's state.
type DocumentSlotResponse struct {
	Slot      string `json:"slot"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}

func toStageCheck(result validate.StageResult) StageCheckResponse {
	resp := StageCheckResponse{
		Stage:    int(result.Stage),
		Complete: result.Complete,
	}
	for _, f := range result.MissingFields {
		resp.MissingFields = append(resp.MissingFields, string(f))
	}
	for _, s := range result.MissingSlots {
		resp.MissingSlots = append(resp.MissingSlots, string(s))
	}
	return resp
}

func toWorkflowResponse(ctrl *workflow.Controller) WorkflowResponse {
	resp := WorkflowResponse{
		ApplicantID:   ctrl.ApplicantID().String(),
		AccountType:   string(ctrl.AccountType()),
		Mode:          string(ctrl.Mode()),
		CurrentStage:  int(ctrl.CurrentStage()),
		Submitted:     ctrl.Submitted(),
		ProgressScore: ctrl.ProgressScore(),
		CanAdvance:    ctrl.CanAdvance(),
		CanRetreat:    ctrl.CanRetreat(),
		StageCheck:    toStageCheck(ctrl.Check(ctrl.CurrentStage())),
		Fields:        make(map[string]any),
	}
	for _, marker := range ctrl.StageMarkers() {
		resp.Stages = append(resp.Stages, StageMarkerResponse{
			ID:         int(marker.ID),
			Name:       marker.Name,
			MarkerDone: marker.MarkerDone,
			Validated:  marker.Validated,
		})
	}
	for key, value := range ctrl.Snapshot() {
		resp.Fields[string(key)] = value
	}
	for _, slot := range schema.Slots() {
		state := ctrl.SlotStates()[slot]
		resp.Documents = append(resp.Documents, DocumentSlotResponse{
			Slot:      string(slot),
			Status:    string(state.Status),
			Reference: state.Reference,
		})
	}
	return resp
}
