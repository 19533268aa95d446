// Package workflow binds the draft, the upload manager, and the stage
// navigator into one engine shared by both operating modes. The self-service
// and admin-assisted flows are the same controller parameterized by Mode, so
// the validator rules can never drift between the two call sites.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/navigator"
	"veristage/internal/kyc/progress"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/upload"
	"veristage/internal/kyc/validate"
	"veristage/internal/platform/metrics"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
	audit "veristage/pkg/platform/audit"
	"veristage/pkg/platform/audit/publishers/compliance"
	"veristage/pkg/platform/audit/publishers/ops"
)

// Mode selects the operating capabilities of a controller instance.
type Mode string

const (
	// ModeSelfService: the applicant operates their own workflow. Linear
	// navigation, nothing persisted upstream until terminal submission.
	ModeSelfService Mode = "self_service"
	// ModeAdminAssisted: a privileged operator drives the workflow for a
	// target applicant. Free stage jumps, autosave after accepted advances,
	// and an explicit force-complete.
	ModeAdminAssisted Mode = "admin_assisted"
)

// Submission is the assembled terminal payload: the full draft plus every
// resolved document reference.
type Submission struct {
	SubmissionID     domain.SubmissionID
	ApplicantID      domain.ApplicantID
	AccountType      domain.AccountType
	Fields           map[schema.FieldKey]any
	Documents        map[schema.SlotName]string
	ForceCompleted   bool
	IncompleteStages []schema.StageID
	SubmittedAt      time.Time
}

//go:generate mockgen -source=workflow.go -destination=mocks/ports_mocks.go -package=mocks RecordClient,Archive

// RecordClient talks to the upstream KYC record service.
type RecordClient interface {
	// Submit posts a completed self-service submission.
	Submit(ctx context.Context, sub Submission) error
	// SaveProgress persists a partial draft incrementally (admin autosave
	// and manual save).
	SaveProgress(ctx context.Context, applicantID domain.ApplicantID, fields map[schema.FieldKey]any) error
	// Complete posts an admin force-complete payload.
	Complete(ctx context.Context, sub Submission) error
}

// Archive records assembled submissions locally for compliance retention.
type Archive interface {
	SaveSubmission(ctx context.Context, sub Submission) error
}

// Controller owns exactly one draft, one upload manager, and one navigator.
// Every mutation of the draft or the navigator is serialized on an internal
// lock, so the controller is safe for concurrent use: a field edit racing an
// upload resolution for the same applicant can never interleave. The lock is
// released for the duration of the remote upload call itself, which lets a
// superseding attempt or a clear cut an in-flight upload off.
type Controller struct {
	mode Mode

	// mu guards draft and nav. The upload manager carries its own lock.
	mu      sync.Mutex
	draft   *draft.Draft
	uploads *upload.Manager
	nav     *navigator.Navigator
	records RecordClient

	archive    Archive
	compliance *compliance.Publisher
	opsAudit   *ops.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	actorID    string
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithArchive enables local submission archiving.
func WithArchive(a Archive) Option {
	return func(c *Controller) { c.archive = a }
}

// WithCompliancePublisher enables fail-closed compliance audit on terminal
// actions.
func WithCompliancePublisher(p *compliance.Publisher) Option {
	return func(c *Controller) { c.compliance = p }
}

// WithOpsPublisher enables best-effort operational audit.
func WithOpsPublisher(p *ops.Publisher) Option {
	return func(c *Controller) { c.opsAudit = p }
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger overrides the default discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithActorID records the operator identity on audit events. Used by the
// admin-assisted mode, where the actor differs from the applicant.
func WithActorID(actor string) Option {
	return func(c *Controller) { c.actorID = actor }
}

// WithSeed pre-fills the draft from known identity data before the first
// stage renders.
func WithSeed(seed draft.Seed) Option {
	return func(c *Controller) {
		fresh := draft.NewSeeded(c.draft.ApplicantID, c.draft.AccountType, seed)
		c.draft = fresh
	}
}

// WithSnapshot restores the draft from a previously captured snapshot, e.g.
// the target applicant's existing partial record in admin-assisted mode.
func WithSnapshot(snapshot map[schema.FieldKey]any) Option {
	return func(c *Controller) {
		c.draft.Restore(snapshot)
	}
}

// New creates a workflow controller for the applicant. documents and records
// are required collaborators.
func New(
	mode Mode,
	applicantID domain.ApplicantID,
	accountType domain.AccountType,
	documents upload.DocumentClient,
	records RecordClient,
	opts ...Option,
) (*Controller, error) {
	if documents == nil {
		return nil, fmt.Errorf("document client is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record client is required")
	}
	if applicantID.IsNil() {
		return nil, fmt.Errorf("applicant id is required")
	}

	c := &Controller{
		mode:    mode,
		draft:   draft.New(applicantID, accountType),
		nav:     navigator.New(mode == ModeAdminAssisted),
		records: records,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer("veristage/internal/kyc/workflow"),
	}
	// The upload manager writes the resolved reference into the draft field
	// bound to the slot, keeping field and slot state in lockstep. The
	// callback runs on the uploading goroutine, so it takes the controller
	// lock before touching the draft.
	c.uploads = upload.NewManager(documents, func(slot schema.SlotName, reference string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.nav.Submitted() {
			return
		}
		if key, ok := schema.SlotField[slot]; ok {
			_ = c.draft.Set(key, reference)
		}
	})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mode returns the controller's operating mode.
func (c *Controller) Mode() Mode { return c.mode }

// ApplicantID returns the applicant the workflow operates on.
func (c *Controller) ApplicantID() domain.ApplicantID { return c.draft.ApplicantID }

// AccountType returns the applicant's account type.
func (c *Controller) AccountType() domain.AccountType { return c.draft.AccountType }

// CurrentStage returns the navigator's current stage.
func (c *Controller) CurrentStage() schema.StageID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Current()
}

// Submitted reports whether the workflow reached its terminal state.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Submitted()
}

// ProgressScore returns the coarse completion percentage.
func (c *Controller) ProgressScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progress.Score(c.draft)
}

// CanAdvance reports whether the current stage passes its validator.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.nav.Submitted() && c.check(c.nav.Current()).Complete
}

// CanRetreat reports whether a backward transition is possible.
func (c *Controller) CanRetreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.CanRetreat()
}

// SlotStates returns the current upload state per document slot.
func (c *Controller) SlotStates() map[schema.SlotName]upload.SlotState {
	return c.uploads.States()
}

// Snapshot returns a copy of the draft's field values.
func (c *Controller) Snapshot() map[schema.FieldKey]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Snapshot()
}

// Check evaluates one stage's validator over the controller's draft and
// uploads.
func (c *Controller) Check(stage schema.StageID) validate.StageResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.check(stage)
}

// check is Check without the lock; callers hold c.mu.
func (c *Controller) check(stage schema.StageID) validate.StageResult {
	return validate.StageComplete(stage, c.draft, c.uploads.States())
}

// gateFunc adapts check to navigator.Gate so the navigator can re-evaluate
// the gate while the controller already holds its lock.
type gateFunc func(schema.StageID) validate.StageResult

func (f gateFunc) Check(stage schema.StageID) validate.StageResult { return f(stage) }

// StageMarker carries the two deliberately distinct completion signals for
// one stage: the coarse score-derived marker and the exact validator result.
type StageMarker struct {
	ID         schema.StageID
	Name       string
	MarkerDone bool
	Validated  bool
}

// StageMarkers returns a marker per stage for rendering.
func (c *Controller) StageMarkers() []StageMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	score := progress.Score(c.draft)
	markers := make([]StageMarker, 0, schema.StageCount)
	for _, st := range schema.Stages() {
		markers = append(markers, StageMarker{
			ID:         st.ID,
			Name:       st.Name,
			MarkerDone: progress.StageMarkerDone(score, st.ID),
			Validated:  c.check(st.ID).Complete,
		})
	}
	return markers
}

// SetField assigns one draft field. Rejected once the workflow is submitted.
func (c *Controller) SetField(_ context.Context, key schema.FieldKey, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nav.Submitted() {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	return c.draft.Set(key, value)
}

// BeginUpload starts the document upload for a slot and blocks until it
// resolves. Supersession and stale-result discard are handled by the upload
// manager; a superseded attempt returns without touching slot state. The
// controller lock is not held across the remote call; the resolution callback
// re-acquires it before writing the reference into the draft.
func (c *Controller) BeginUpload(ctx context.Context, slot schema.SlotName, filename string, contents io.Reader) error {
	c.mu.Lock()
	if c.nav.Submitted() {
		c.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	c.mu.Unlock()

	start := time.Now()
	err := c.uploads.Begin(ctx, slot, filename, contents)
	if c.metrics != nil {
		outcome := "succeeded"
		if err != nil {
			outcome = "failed"
		}
		c.metrics.Uploads.WithLabelValues(string(slot), outcome).Inc()
		c.metrics.ObserveUpstream("documents", time.Since(start))
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUploadFailed) {
			c.mu.Lock()
			stage := int(c.nav.Current())
			c.mu.Unlock()
			c.emitOps(audit.Event{
				Action: audit.ActionUploadFailed,
				Stage:  stage,
				Detail: string(slot),
			})
			c.logger.WarnContext(ctx, "document upload failed",
				"applicant_id", c.draft.ApplicantID,
				"slot", slot,
				"error", err,
			)
		}
		return err
	}
	return nil
}

// ClearUpload resets a slot to idle and clears the bound draft field,
// enabling a fresh selection. Idempotent.
func (c *Controller) ClearUpload(slot schema.SlotName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads.Clear(slot)
	if key, ok := schema.SlotField[slot]; ok {
		c.draft.Clear(key)
	}
}

// Advance moves the workflow forward. Against an intermediate stage it is
// gated by the step validator; an incomplete stage yields a
// ValidationIncomplete error naming every unmet requirement and leaves the
// position unchanged. At the terminal stage it performs submission instead:
// self-service posts to the submission endpoint, admin-assisted to the
// complete endpoint, both after re-validating the terminal stage.
//
// In admin-assisted mode every accepted advance triggers an autosave. An
// autosave failure does not roll the transition back; it surfaces as a
// PersistenceFailed outcome so the operator can retry with a manual save.
func (c *Controller) Advance(ctx context.Context) (validate.StageResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "workflow.Advance",
		trace.WithAttributes(attribute.Int("kyc.stage", int(c.nav.Current()))))
	defer span.End()

	if c.nav.AtTerminalStage() && !c.nav.Submitted() {
		result := c.check(schema.StageDepository)
		if !result.Complete {
			c.recordRefusal(result)
			return result, dErrors.New(dErrors.CodeValidationIncomplete, "stage requirements not met").
				WithFields(result.Missing()...)
		}
		if c.mode == ModeAdminAssisted {
			return result, c.complete(ctx)
		}
		return result, c.submit(ctx)
	}

	from := c.nav.Current()
	result, err := c.nav.Advance(gateFunc(c.check))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidationIncomplete) {
			c.recordRefusal(result)
		}
		return result, err
	}

	if c.metrics != nil {
		c.metrics.StageAdvances.WithLabelValues(string(c.mode)).Inc()
	}
	c.emitOps(audit.Event{Action: audit.ActionStageAdvanced, Stage: int(from)})
	c.logger.InfoContext(ctx, "stage advanced",
		"applicant_id", c.draft.ApplicantID,
		"from", from,
		"to", c.nav.Current(),
		"mode", c.mode,
	)

	if c.mode == ModeAdminAssisted {
		if err := c.saveProgress(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Retreat moves one stage back, unconditionally.
func (c *Controller) Retreat(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.nav.Retreat(); err != nil {
		return err
	}
	c.emitOps(audit.Event{Action: audit.ActionStageRetreated, Stage: int(c.nav.Current())})
	c.logger.DebugContext(ctx, "stage retreated",
		"applicant_id", c.draft.ApplicantID,
		"to", c.nav.Current(),
	)
	return nil
}

// JumpTo relocates to an arbitrary stage without a validation gate.
// Admin-assisted mode only.
func (c *Controller) JumpTo(ctx context.Context, stage schema.StageID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.nav.JumpTo(stage); err != nil {
		return err
	}
	c.emitOps(audit.Event{Action: audit.ActionStageJumped, Stage: int(stage)})
	c.logger.DebugContext(ctx, "stage jumped",
		"applicant_id", c.draft.ApplicantID,
		"to", stage,
	)
	return nil
}

// Save persists the current draft incrementally, independent of navigation.
// Admin-assisted mode only; the self-service flow persists nothing upstream
// until terminal submission.
func (c *Controller) Save(ctx context.Context) error {
	if c.mode != ModeAdminAssisted {
		return dErrors.New(dErrors.CodeForbidden, "manual save is not available in this mode")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nav.Submitted() {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	return c.saveProgress(ctx)
}

func (c *Controller) saveProgress(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "workflow.SaveProgress")
	defer span.End()

	start := time.Now()
	err := c.records.SaveProgress(ctx, c.draft.ApplicantID, c.draft.Snapshot())
	if c.metrics != nil {
		c.metrics.ObserveUpstream("records", time.Since(start))
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "progress save failed",
			"applicant_id", c.draft.ApplicantID,
			"error", err,
		)
		return dErrors.Wrap(dErrors.CodePersistenceFailed, "could not save progress", err)
	}
	if c.metrics != nil {
		c.metrics.Autosaves.Inc()
	}
	c.emitOps(audit.Event{Action: audit.ActionProgressSaved, Stage: int(c.nav.Current())})
	return nil
}

// Submit finalizes a self-service workflow from the terminal stage. The
// terminal stage's validator is re-evaluated here: reaching stage eight does
// not by itself prove it was completed. On persistence failure the draft and
// navigator state are retained unchanged and no automatic retry happens.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nav.Submitted() {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	if !c.nav.AtTerminalStage() {
		return dErrors.New(dErrors.CodeInvalidState, "submission is only possible from the final stage")
	}
	result := c.check(schema.StageDepository)
	if !result.Complete {
		c.recordRefusal(result)
		c.emitOps(audit.Event{Action: audit.ActionSubmitRejected, Stage: int(schema.StageDepository)})
		return dErrors.New(dErrors.CodeValidationIncomplete, "final stage requirements not met").
			WithFields(result.Missing()...)
	}
	return c.submit(ctx)
}

// Complete force-finalizes an admin-assisted workflow even when not every
// stage passes its validator. The unsatisfied stages are recorded on a
// fail-closed compliance audit event; if that audit write fails, the
// completion is refused.
func (c *Controller) Complete(ctx context.Context) error {
	if c.mode != ModeAdminAssisted {
		return dErrors.New(dErrors.CodeForbidden, "force-complete is not available in this mode")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nav.Submitted() {
		return dErrors.New(dErrors.CodeInvalidState, "workflow already submitted")
	}
	return c.complete(ctx)
}

// complete finalizes through the admin complete endpoint. Callers hold c.mu
// and have checked the submitted state.
func (c *Controller) complete(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "workflow.Complete")
	defer span.End()

	sub := c.assemble(true)
	if err := c.persistTerminal(ctx, sub); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ForceCompletions.Inc()
	}
	c.nav.MarkSubmitted()
	c.logger.InfoContext(ctx, "workflow force-completed",
		"applicant_id", c.draft.ApplicantID,
		"actor_id", c.actorID,
		"incomplete_stages", len(sub.IncompleteStages),
	)
	return nil
}

func (c *Controller) submit(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "workflow.Submit")
	defer span.End()

	sub := c.assemble(false)
	if err := c.persistTerminal(ctx, sub); err != nil {
		if c.metrics != nil {
			c.metrics.Submissions.WithLabelValues("failed").Inc()
		}
		return err
	}
	if c.metrics != nil {
		c.metrics.Submissions.WithLabelValues("succeeded").Inc()
	}
	c.nav.MarkSubmitted()
	c.logger.InfoContext(ctx, "workflow submitted",
		"applicant_id", c.draft.ApplicantID,
		"submission_id", sub.SubmissionID,
	)
	return nil
}

// persistTerminal posts the assembled payload upstream, archives it locally,
// and writes the compliance audit event. The upstream call and the compliance
// write are both on the critical path: failure of either leaves the workflow
// un-submitted so the caller can retry. The local archive is best-effort.
func (c *Controller) persistTerminal(ctx context.Context, sub Submission) error {
	start := time.Now()
	var err error
	if sub.ForceCompleted {
		err = c.records.Complete(ctx, sub)
	} else {
		err = c.records.Submit(ctx, sub)
	}
	if c.metrics != nil {
		c.metrics.ObserveUpstream("records", time.Since(start))
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "terminal persistence failed",
			"applicant_id", c.draft.ApplicantID,
			"force_completed", sub.ForceCompleted,
			"error", err,
		)
		return dErrors.Wrap(dErrors.CodePersistenceFailed, "could not persist submission", err)
	}

	if c.archive != nil {
		if err := c.archive.SaveSubmission(ctx, sub); err != nil {
			c.logger.ErrorContext(ctx, "submission archive write failed",
				"applicant_id", c.draft.ApplicantID,
				"submission_id", sub.SubmissionID,
				"error", err,
			)
		}
	}

	if c.compliance != nil {
		action := audit.ActionSubmitted
		detail := ""
		if sub.ForceCompleted {
			action = audit.ActionForceCompleted
			detail = incompleteStagesDetail(sub.IncompleteStages)
		}
		event := audit.Event{
			ApplicantID: c.draft.ApplicantID,
			Action:      action,
			Stage:       int(schema.StageDepository),
			ActorID:     c.actorID,
			Detail:      detail,
		}
		if err := c.compliance.Emit(ctx, event); err != nil {
			return dErrors.Wrap(dErrors.CodePersistenceFailed, "compliance audit failed", err)
		}
	}
	return nil
}

// assemble builds the submission payload from the draft and the resolved
// document references.
func (c *Controller) assemble(force bool) Submission {
	sub := Submission{
		SubmissionID:   domain.NewSubmissionID(),
		ApplicantID:    c.draft.ApplicantID,
		AccountType:    c.draft.AccountType,
		Fields:         c.draft.Snapshot(),
		Documents:      c.uploads.References(),
		ForceCompleted: force,
		SubmittedAt:    time.Now(),
	}
	if force {
		for _, st := range schema.Stages() {
			if !c.check(st.ID).Complete {
				sub.IncompleteStages = append(sub.IncompleteStages, st.ID)
			}
		}
		sort.Slice(sub.IncompleteStages, func(i, j int) bool {
			return sub.IncompleteStages[i] < sub.IncompleteStages[j]
		})
	}
	return sub
}

func (c *Controller) recordRefusal(result validate.StageResult) {
	if c.metrics != nil {
		c.metrics.ValidationRefusals.WithLabelValues(fmt.Sprint(int(result.Stage))).Inc()
	}
}

func (c *Controller) emitOps(event audit.Event) {
	if c.opsAudit == nil {
		return
	}
	event.ApplicantID = c.draft.ApplicantID
	event.ActorID = c.actorID
	c.opsAudit.Emit(event)
}

func incompleteStagesDetail(stages []schema.StageID) string {
	if len(stages) == 0 {
		return "all stages validated"
	}
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprint(int(s))
	}
	return "incomplete stages: " + strings.Join(parts, ",")
}
