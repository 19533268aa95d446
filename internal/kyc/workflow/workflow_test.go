package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/workflow"
	"veristage/internal/kyc/workflow/mocks"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
	audit "veristage/pkg/platform/audit"
	"veristage/pkg/platform/audit/publishers/compliance"
	"veristage/pkg/platform/audit/publishers/ops"
	auditmemory "veristage/pkg/platform/audit/store/memory"
)

// fakeDocs resolves uploads immediately with a deterministic reference, or
// fails for slots listed in fail.
type fakeDocs struct {
	fail map[schema.SlotName]int // remaining failures per slot
}

func (f *fakeDocs) Upload(_ context.Context, slot schema.SlotName, _ string, _ io.Reader) (string, error) {
	if f.fail != nil && f.fail[slot] > 0 {
		f.fail[slot]--
		return "", errors.New("document storage unavailable")
	}
	return "ref-" + string(slot), nil
}

// slowDocs holds every upload until release is closed, so tests can interleave
// other controller calls with an in-flight upload.
type slowDocs struct {
	release chan struct{}
}

func (d *slowDocs) Upload(_ context.Context, slot schema.SlotName, _ string, _ io.Reader) (string, error) {
	<-d.release
	return "ref-" + string(slot), nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("audit store down")
}

func newApplicant() domain.ApplicantID {
	return domain.ApplicantID(uuid.New())
}

func mustSet(t *testing.T, c *workflow.Controller, key schema.FieldKey, value any) {
	t.Helper()
	require.NoError(t, c.SetField(context.Background(), key, value))
}

// fillStage fills the required fields of one stage for an individual draft.
func fillStage(t *testing.T, c *workflow.Controller, stage schema.StageID) {
	t.Helper()
	for _, key := range schema.RequiredFields(stage, domain.AccountIndividual) {
		if schema.IsBoolean(key) {
			mustSet(t, c, key, true)
		} else {
			mustSet(t, c, key, "value-"+string(key))
		}
	}
}

// uploadRequired uploads every document slot a stage requires.
func uploadRequired(t *testing.T, c *workflow.Controller, stage schema.StageID) {
	t.Helper()
	for _, slot := range schema.RequiredSlots(stage) {
		require.NoError(t, c.BeginUpload(context.Background(), slot, string(slot)+".pdf", strings.NewReader("doc")))
	}
}

// walkToTerminal fills and advances through stages 1..7, leaving the
// controller at the depository stage.
func walkToTerminal(t *testing.T, c *workflow.Controller) {
	t.Helper()
	for c.CurrentStage() < schema.StageDepository {
		stage := c.CurrentStage()
		fillStage(t, c, stage)
		uploadRequired(t, c, stage)
		_, err := c.Advance(context.Background())
		require.NoError(t, err, "advancing from stage %d", stage)
	}
}

func TestAdvance_RefusalNamesMissingRequirements(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	mustSet(t, wf, schema.FieldFirstName, "Amina")
	_, advErr := wf.Advance(context.Background())

	require.Error(t, advErr)
	assert.True(t, dErrors.HasCode(advErr, dErrors.CodeValidationIncomplete))
	assert.ElementsMatch(t,
		[]string{"last_name", "date_of_birth", "nationality"},
		dErrors.FieldsOf(advErr))
	assert.Equal(t, schema.StagePersonal, wf.CurrentStage(), "refusal must not move the stage")
}

func TestAdvance_MissingPhoneIsNamedOnContactStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	fillStage(t, wf, schema.StagePersonal)
	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	require.Equal(t, schema.StageContact, wf.CurrentStage())

	mustSet(t, wf, schema.FieldEmail, "amina@example.com")
	mustSet(t, wf, schema.FieldAddressLine1, "12 Rue de la Corniche")
	mustSet(t, wf, schema.FieldCity, "Dakar")

	_, advErr = wf.Advance(context.Background())
	require.Error(t, advErr)
	assert.Equal(t, []string{"phone"}, dErrors.FieldsOf(advErr))

	mustSet(t, wf, schema.FieldPhone, "+221771234567")
	_, advErr = wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.Equal(t, schema.StageIdentification, wf.CurrentStage())
}

func TestUpload_KeepsDraftFieldInLockstep(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	require.NoError(t, wf.BeginUpload(context.Background(), schema.SlotIDFront, "front.jpg", strings.NewReader("img")))

	snapshot := wf.Snapshot()
	assert.Equal(t, "ref-id-front", snapshot[schema.FieldIDFrontDocument])

	wf.ClearUpload(schema.SlotIDFront)
	snapshot = wf.Snapshot()
	assert.NotContains(t, snapshot, schema.FieldIDFrontDocument)
	assert.Equal(t, "idle", string(wf.SlotStates()[schema.SlotIDFront].Status))
}

func TestAdvance_PendingUploadBlocksIdentificationStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	docs := &fakeDocs{fail: map[schema.SlotName]int{schema.SlotIDBack: 1}}

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, docs, records)
	require.NoError(t, err)

	fillStage(t, wf, schema.StagePersonal)
	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	fillStage(t, wf, schema.StageContact)
	_, advErr = wf.Advance(context.Background())
	require.NoError(t, advErr)

	fillStage(t, wf, schema.StageIdentification)
	require.NoError(t, wf.BeginUpload(context.Background(), schema.SlotIDFront, "front.jpg", strings.NewReader("a")))
	uploadErr := wf.BeginUpload(context.Background(), schema.SlotIDBack, "back.jpg", strings.NewReader("b"))
	require.Error(t, uploadErr)
	assert.True(t, dErrors.HasCode(uploadErr, dErrors.CodeUploadFailed))

	_, advErr = wf.Advance(context.Background())
	require.Error(t, advErr)
	assert.Contains(t, dErrors.FieldsOf(advErr), "id-back")

	// A retry succeeds and unblocks the stage.
	require.NoError(t, wf.BeginUpload(context.Background(), schema.SlotIDBack, "back.jpg", strings.NewReader("b")))
	_, advErr = wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.Equal(t, schema.StageTax, wf.CurrentStage())
}

func TestSubmit_OnlyFromTerminalStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	submitErr := wf.Submit(context.Background())
	require.Error(t, submitErr)
	assert.True(t, dErrors.HasCode(submitErr, dErrors.CodeInvalidState))
}

func TestSubmit_ReValidatesTerminalStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	opsPub := ops.New()

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithOpsPublisher(opsPub))
	require.NoError(t, err)

	walkToTerminal(t, wf)
	mustSet(t, wf, schema.FieldDepositoryAccountNumber, "CDS-9911")
	mustSet(t, wf, schema.FieldTermsAttested, false)

	submitErr := wf.Submit(context.Background())
	require.Error(t, submitErr)
	assert.True(t, dErrors.HasCode(submitErr, dErrors.CodeValidationIncomplete))
	assert.Contains(t, dErrors.FieldsOf(submitErr), "terms_attested")
	assert.False(t, wf.Submitted())

	// The walk also emitted advance events; drain everything buffered and
	// look for the rejection marker.
	found := false
	for drained := false; !drained; {
		select {
		case event := <-opsPub.Outbox():
			if event.Action == audit.ActionSubmitRejected {
				found = true
			}
		default:
			drained = true
		}
	}
	assert.True(t, found, "expected a submit_rejected event in the ops outbox")
}

func TestSubmit_PersistsArchivesAndAudits(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	archive := mocks.NewMockArchive(ctrl)
	auditStore := auditmemory.New()

	applicantID := newApplicant()
	wf, err := workflow.New(workflow.ModeSelfService, applicantID, domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithArchive(archive),
		workflow.WithCompliancePublisher(compliance.New(auditStore)))
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	var captured workflow.Submission
	records.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub workflow.Submission) error {
			captured = sub
			return nil
		})
	archive.EXPECT().SaveSubmission(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, wf.Submit(context.Background()))
	assert.True(t, wf.Submitted())

	assert.Equal(t, applicantID, captured.ApplicantID)
	assert.False(t, captured.SubmissionID.IsNil())
	assert.False(t, captured.ForceCompleted)
	assert.Empty(t, captured.IncompleteStages)
	assert.Equal(t, "ref-id-front", captured.Documents[schema.SlotIDFront])
	assert.Equal(t, "ref-id-back", captured.Documents[schema.SlotIDBack])
	assert.Equal(t, "ref-tax-certificate", captured.Documents[schema.SlotTaxCertificate])

	events, err := auditStore.ListByApplicant(context.Background(), applicantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSubmitted, events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestSubmit_UpstreamFailureIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(errors.New("record service down"))
	submitErr := wf.Submit(context.Background())
	require.Error(t, submitErr)
	assert.True(t, dErrors.HasCode(submitErr, dErrors.CodePersistenceFailed))
	assert.False(t, wf.Submitted(), "a failed submission must leave the workflow open")

	// Nothing was lost; an explicit retry succeeds.
	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, wf.Submit(context.Background()))
	assert.True(t, wf.Submitted())
}

func TestSubmit_RefusedWhenComplianceAuditFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithCompliancePublisher(compliance.New(failingStore{})))
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)
	submitErr := wf.Submit(context.Background())
	require.Error(t, submitErr)
	assert.True(t, dErrors.HasCode(submitErr, dErrors.CodePersistenceFailed))
	assert.False(t, wf.Submitted())
}

func TestSetField_RejectedAfterSubmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)
	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, wf.Submit(context.Background()))

	setErr := wf.SetField(context.Background(), schema.FieldFirstName, "Changed")
	assert.True(t, dErrors.HasCode(setErr, dErrors.CodeInvalidState))

	uploadErr := wf.BeginUpload(context.Background(), schema.SlotIDFront, "f.jpg", strings.NewReader("a"))
	assert.True(t, dErrors.HasCode(uploadErr, dErrors.CodeInvalidState))
}

func TestAdminAdvance_TriggersAutosave(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	applicantID := newApplicant()
	wf, err := workflow.New(workflow.ModeAdminAssisted, applicantID, domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithActorID("ops-user-7"))
	require.NoError(t, err)

	fillStage(t, wf, schema.StagePersonal)
	records.EXPECT().SaveProgress(gomock.Any(), applicantID, gomock.Any()).Return(nil)

	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.Equal(t, schema.StageContact, wf.CurrentStage())
}

func TestAdminAdvance_AutosaveFailureDoesNotRollBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeAdminAssisted, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	fillStage(t, wf, schema.StagePersonal)
	records.EXPECT().SaveProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("record service down"))

	_, advErr := wf.Advance(context.Background())
	require.Error(t, advErr)
	assert.True(t, dErrors.HasCode(advErr, dErrors.CodePersistenceFailed))
	assert.Equal(t, schema.StageContact, wf.CurrentStage(),
		"the accepted transition stands; only the save needs a retry")

	// A manual save retries the persistence.
	records.EXPECT().SaveProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, wf.Save(context.Background()))
}

func TestAdminJumpTo_SkipsGates(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeAdminAssisted, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	// Jump straight to the bank stage over seven incomplete stages.
	require.NoError(t, wf.JumpTo(context.Background(), schema.StageBank))
	assert.Equal(t, schema.StageBank, wf.CurrentStage())

	// Advancing out of the jumped-to stage still validates that stage.
	fillStage(t, wf, schema.StageBank)
	records.EXPECT().SaveProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.Equal(t, schema.StageDepository, wf.CurrentStage())
}

func TestSelfServiceJumpTo_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	jumpErr := wf.JumpTo(context.Background(), schema.StageBank)
	assert.True(t, dErrors.HasCode(jumpErr, dErrors.CodeForbidden))
}

func TestSelfServiceSave_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	assert.True(t, dErrors.HasCode(wf.Save(context.Background()), dErrors.CodeForbidden))
}

func TestComplete_ForbiddenInSelfService(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	assert.True(t, dErrors.HasCode(wf.Complete(context.Background()), dErrors.CodeForbidden))
}

func TestComplete_RecordsIncompleteStagesOnComplianceEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	auditStore := auditmemory.New()

	applicantID := newApplicant()
	wf, err := workflow.New(workflow.ModeAdminAssisted, applicantID, domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithActorID("ops-user-7"),
		workflow.WithCompliancePublisher(compliance.New(auditStore)))
	require.NoError(t, err)

	// Only the personal stage is complete; everything else is left open.
	fillStage(t, wf, schema.StagePersonal)

	var captured workflow.Submission
	records.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub workflow.Submission) error {
			captured = sub
			return nil
		})

	require.NoError(t, wf.Complete(context.Background()))
	assert.True(t, wf.Submitted())

	assert.True(t, captured.ForceCompleted)
	assert.Equal(t, []schema.StageID{
		schema.StageContact, schema.StageIdentification, schema.StageTax,
		schema.StageEmployment, schema.StageFinancialProfile, schema.StageBank,
		schema.StageDepository,
	}, captured.IncompleteStages)

	events, err := auditStore.ListByApplicant(context.Background(), applicantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionForceCompleted, events[0].Action)
	assert.Equal(t, "ops-user-7", events[0].ActorID)
	assert.Contains(t, events[0].Detail, "incomplete stages: 2,3,4,5,6,7,8")
}

func TestComplete_RefusedWhenComplianceAuditFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeAdminAssisted, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithCompliancePublisher(compliance.New(failingStore{})))
	require.NoError(t, err)

	records.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(nil)
	completeErr := wf.Complete(context.Background())
	require.Error(t, completeErr)
	assert.True(t, dErrors.HasCode(completeErr, dErrors.CodePersistenceFailed))
	assert.False(t, wf.Submitted(), "fail-closed: no audit record, no completion")
}

func TestAdvance_AtTerminalStageSubmits(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)
	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.True(t, wf.Submitted())
}

func TestStageMarkers_TwoSignalsDiverge(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	// Fill a broad but shallow slice of the draft: many optional fields, no
	// stage fully satisfying its validator beyond stage one.
	fillStage(t, wf, schema.StagePersonal)
	for _, key := range []schema.FieldKey{
		schema.FieldMiddleName, schema.FieldPlaceOfBirth, schema.FieldGender,
		schema.FieldMaritalStatus, schema.FieldAddressLine2, schema.FieldRegion,
		schema.FieldPostalCode, schema.FieldCountryOfResidence, schema.FieldOccupation,
	} {
		mustSet(t, wf, key, "x")
	}

	markers := wf.StageMarkers()
	require.Len(t, markers, schema.StageCount)

	var divergent bool
	for _, m := range markers {
		if m.MarkerDone != m.Validated {
			divergent = true
		}
	}
	assert.True(t, divergent, "score marker and validator are distinct signals")

	assert.True(t, markers[0].Validated, "stage one is validator-complete")
	score := wf.ProgressScore()
	assert.Greater(t, score, 0)
	assert.Less(t, score, 100)
}

func TestRetreat_EmitsNoErrorMidWalk(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	fillStage(t, wf, schema.StagePersonal)
	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)

	require.NoError(t, wf.Retreat(context.Background()))
	assert.Equal(t, schema.StagePersonal, wf.CurrentStage())

	retreatErr := wf.Retreat(context.Background())
	assert.True(t, dErrors.HasCode(retreatErr, dErrors.CodeInvalidState))
}

func TestNew_RequiredCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	_, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, nil, records)
	require.Error(t, err)

	_, err = workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, nil)
	require.Error(t, err)

	_, err = workflow.New(workflow.ModeSelfService, domain.ApplicantID{}, domain.AccountIndividual, &fakeDocs{}, records)
	require.Error(t, err)
}

func TestWithSeed_PrefillsIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithSeed(draft.Seed{
			FirstName: "Amina",
			LastName:  "Diallo",
			Phone:     "+221771234567",
			Email:     "amina@example.com",
		}))
	require.NoError(t, err)

	snapshot := wf.Snapshot()
	assert.Equal(t, "Amina", snapshot[schema.FieldFirstName])
	assert.Equal(t, "amina@example.com", snapshot[schema.FieldEmail])
	assert.Greater(t, wf.ProgressScore(), 0)
}

func TestWithSnapshot_RestoresDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	wf, err := workflow.New(workflow.ModeAdminAssisted, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records,
		workflow.WithSnapshot(map[schema.FieldKey]any{
			schema.FieldFirstName: "Amina",
			schema.FieldIDNumber:  "A1234567",
		}))
	require.NoError(t, err)

	snapshot := wf.Snapshot()
	assert.Equal(t, "Amina", snapshot[schema.FieldFirstName])
	assert.Equal(t, "A1234567", snapshot[schema.FieldIDNumber])
}

func TestFieldEditsDuringInFlightUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)

	docs := &slowDocs{release: make(chan struct{})}
	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, docs, records)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- wf.BeginUpload(context.Background(), schema.SlotIDFront, "front.pdf", strings.NewReader("doc"))
	}()

	// Edit and read the draft from this goroutine while the upload is held
	// open on another. Mutations are serialized inside the controller, so
	// neither side may observe a torn draft.
	for i := 0; i < 100; i++ {
		mustSet(t, wf, schema.FieldOccupation, fmt.Sprintf("occupation-%d", i))
		_ = wf.ProgressScore()
		_ = wf.StageMarkers()
	}
	close(docs.release)
	require.NoError(t, <-done)

	snapshot := wf.Snapshot()
	assert.Equal(t, "ref-id-front", snapshot[schema.FieldIDFrontDocument])
	assert.Equal(t, "occupation-99", snapshot[schema.FieldOccupation])
}

func TestUpload_ResolvedAfterSubmissionLeavesDraftAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	records.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil)

	docs := &slowDocs{release: make(chan struct{})}
	wf, err := workflow.New(workflow.ModeSelfService, newApplicant(), domain.AccountIndividual, docs, records)
	require.NoError(t, err)

	// The identification documents resolve instantly on the walk up; only
	// the extra attempt below is held open.
	close(docs.release)
	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	docs.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- wf.BeginUpload(context.Background(), schema.SlotTaxCertificate, "late.pdf", strings.NewReader("doc"))
	}()

	require.NoError(t, wf.Submit(context.Background()))
	before := wf.Snapshot()[schema.FieldTaxCertificateDocument]

	close(docs.release)
	require.NoError(t, <-done)
	assert.Equal(t, before, wf.Snapshot()[schema.FieldTaxCertificateDocument],
		"a resolution landing after submission must not rewrite the draft")
}

func TestAdminAdvance_AtTerminalStageRoutesThroughComplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mocks.NewMockRecordClient(ctrl)
	records.EXPECT().SaveProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	wf, err := workflow.New(workflow.ModeAdminAssisted, newApplicant(), domain.AccountIndividual, &fakeDocs{}, records)
	require.NoError(t, err)

	walkToTerminal(t, wf)
	fillStage(t, wf, schema.StageDepository)

	var captured workflow.Submission
	records.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, sub workflow.Submission) error {
			captured = sub
			return nil
		})

	_, advErr := wf.Advance(context.Background())
	require.NoError(t, advErr)
	assert.True(t, wf.Submitted())
	assert.True(t, captured.ForceCompleted, "the admin flow finalizes through the complete endpoint")
	assert.Empty(t, captured.IncompleteStages, "a fully walked workflow has nothing to flag")
}
