// Package service orchestrates workflow sessions: opening a controller for
// an applicant, routing API operations to it, and keeping the
// snapshot cache warm so sessions survive restarts. Handlers stay thin and
// the engine packages stay free of persistence concerns.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/store"
	"veristage/internal/kyc/upload"
	"veristage/internal/kyc/validate"
	"veristage/internal/kyc/workflow"
	"veristage/internal/platform/metrics"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
	"veristage/pkg/platform/audit/publishers/compliance"
	"veristage/pkg/platform/audit/publishers/ops"
	"veristage/pkg/platform/sentinel"
)

// SnapshotStore caches draft snapshots for session continuity. Optional.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, applicantID domain.ApplicantID, accountType domain.AccountType, fields map[schema.FieldKey]any) error
	FindSnapshot(ctx context.Context, applicantID domain.ApplicantID) (domain.AccountType, map[schema.FieldKey]any, error)
	DeleteSnapshot(ctx context.Context, applicantID domain.ApplicantID) error
}

// RecordFetcher reads an applicant's existing partial record so the
// admin-assisted mode can pre-seed its draft.
type RecordFetcher interface {
	FetchRecord(ctx context.Context, applicantID domain.ApplicantID) (domain.AccountType, map[schema.FieldKey]any, error)
}

// Service owns the session registry and the controller factory.
type Service struct {
	sessions  *store.SessionStore
	snapshots SnapshotStore
	fetcher   RecordFetcher
	documents upload.DocumentClient
	records   workflow.RecordClient

	archive    workflow.Archive
	compliance *compliance.Publisher
	opsAudit   *ops.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithSnapshots(s SnapshotStore) Option {
	return func(svc *Service) { svc.snapshots = s }
}

func WithRecordFetcher(f RecordFetcher) Option {
	return func(svc *Service) { svc.fetcher = f }
}

func WithArchive(a workflow.Archive) Option {
	return func(svc *Service) { svc.archive = a }
}

func WithCompliancePublisher(p *compliance.Publisher) Option {
	return func(svc *Service) { svc.compliance = p }
}

func WithOpsPublisher(p *ops.Publisher) Option {
	return func(svc *Service) { svc.opsAudit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) { svc.logger = logger }
}

// New creates the service. documents and records are required.
func New(documents upload.DocumentClient, records workflow.RecordClient, opts ...Option) (*Service, error) {
	if documents == nil {
		return nil, errors.New("document client is required")
	}
	if records == nil {
		return nil, errors.New("record client is required")
	}
	svc := &Service{
		sessions:  store.NewSessionStore(),
		documents: documents,
		records:   records,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// OpenSelfService returns the applicant's live workflow, creating one when
// none exists. A cached snapshot (continuity after restart) is restored when
// available; otherwise the draft is seeded from the identity context. While
// an administrator holds the applicant's workflow, self-service access is
// refused: a parallel session over the same record would fork the draft.
func (s *Service) OpenSelfService(ctx context.Context, applicantID domain.ApplicantID, accountType domain.AccountType, seed draft.Seed) (*workflow.Controller, error) {
	if ctrl, err := s.sessions.Find(ctx, applicantID); err == nil {
		if ctrl.Mode() == workflow.ModeSelfService {
			return ctrl, nil
		}
		return nil, dErrors.New(dErrors.CodeConflict, "workflow is currently handled by an administrator")
	}

	opts := s.controllerOptions()
	if snapshot := s.findSnapshot(ctx, applicantID); snapshot != nil {
		opts = append(opts, workflow.WithSnapshot(snapshot))
	} else {
		opts = append(opts, workflow.WithSeed(seed))
	}

	ctrl, err := workflow.New(workflow.ModeSelfService, applicantID, accountType, s.documents, s.records, opts...)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not open workflow", err)
	}
	if err := s.sessions.Put(ctx, ctrl); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not register workflow session", err)
	}
	return ctrl, nil
}

// OpenAdminAssisted returns a live admin workflow for the target applicant,
// pre-seeded from the applicant's existing record when a fetcher is wired.
// Opening over a live self-service session is a takeover: the session's
// unsaved draft is the freshest state, so it is carried into the admin
// controller instead of being destroyed by the registry swap. The applicant's
// own access stays refused until the admin session is completed or discarded.
func (s *Service) OpenAdminAssisted(ctx context.Context, applicantID domain.ApplicantID, accountType domain.AccountType, actorID string) (*workflow.Controller, error) {
	var takeover map[schema.FieldKey]any
	if ctrl, err := s.sessions.Find(ctx, applicantID); err == nil {
		if ctrl.Mode() == workflow.ModeAdminAssisted {
			return ctrl, nil
		}
		takeover = ctrl.Snapshot()
		accountType = ctrl.AccountType()
		s.logger.InfoContext(ctx, "admin takeover of live self-service session",
			"applicant_id", applicantID,
			"actor_id", actorID,
		)
	}

	opts := append(s.controllerOptions(), workflow.WithActorID(actorID))
	switch {
	case takeover != nil:
		opts = append(opts, workflow.WithSnapshot(takeover))
	case s.fetcher != nil:
		fetchedType, fields, err := s.fetcher.FetchRecord(ctx, applicantID)
		switch {
		case err == nil:
			if fetchedType != "" {
				accountType = fetchedType
			}
			opts = append(opts, workflow.WithSnapshot(fields))
		case errors.Is(err, sentinel.ErrNotFound):
			// New applicant, empty draft.
		default:
			return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not fetch applicant record", err)
		}
	}

	ctrl, err := workflow.New(workflow.ModeAdminAssisted, applicantID, accountType, s.documents, s.records, opts...)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not open workflow", err)
	}
	if err := s.sessions.Put(ctx, ctrl); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not register workflow session", err)
	}
	return ctrl, nil
}

// Get returns the live workflow for the applicant.
func (s *Service) Get(ctx context.Context, applicantID domain.ApplicantID) (*workflow.Controller, error) {
	ctrl, err := s.sessions.Find(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no open workflow for applicant")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "session lookup failed", err)
	}
	return ctrl, nil
}

// Discard drops the applicant's session and cached snapshot. The draft is
// destroyed; nothing is persisted.
func (s *Service) Discard(ctx context.Context, applicantID domain.ApplicantID) error {
	if err := s.sessions.Delete(ctx, applicantID); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not discard session", err)
	}
	if s.snapshots != nil {
		if err := s.snapshots.DeleteSnapshot(ctx, applicantID); err != nil {
			s.logger.WarnContext(ctx, "could not delete draft snapshot",
				"applicant_id", applicantID,
				"error", err,
			)
		}
	}
	return nil
}

// SetField routes a field mutation to the applicant's workflow and refreshes
// the snapshot cache.
func (s *Service) SetField(ctx context.Context, applicantID domain.ApplicantID, key schema.FieldKey, value any) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := ctrl.SetField(ctx, key, value); err != nil {
		return err
	}
	s.saveSnapshot(ctx, ctrl)
	return nil
}

// BeginUpload routes a document upload to the applicant's workflow.
func (s *Service) BeginUpload(ctx context.Context, applicantID domain.ApplicantID, slot schema.SlotName, filename string, contents io.Reader) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := ctrl.BeginUpload(ctx, slot, filename, contents); err != nil {
		return err
	}
	s.saveSnapshot(ctx, ctrl)
	return nil
}

// ClearUpload resets a document slot.
func (s *Service) ClearUpload(ctx context.Context, applicantID domain.ApplicantID, slot schema.SlotName) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	ctrl.ClearUpload(slot)
	s.saveSnapshot(ctx, ctrl)
	return nil
}

// Advance routes a forward transition.
func (s *Service) Advance(ctx context.Context, applicantID domain.ApplicantID) (validate.StageResult, error) {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return validate.StageResult{}, err
	}
	result, advErr := ctrl.Advance(ctx)
	s.saveSnapshot(ctx, ctrl)
	if advErr == nil && ctrl.Submitted() {
		s.clearSnapshot(ctx, ctrl)
	}
	return result, advErr
}

// Retreat routes a backward transition.
func (s *Service) Retreat(ctx context.Context, applicantID domain.ApplicantID) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	return ctrl.Retreat(ctx)
}

// JumpTo routes an admin stage jump.
func (s *Service) JumpTo(ctx context.Context, applicantID domain.ApplicantID, stage schema.StageID) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	return ctrl.JumpTo(ctx, stage)
}

// Save routes a manual admin save.
func (s *Service) Save(ctx context.Context, applicantID domain.ApplicantID) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	return ctrl.Save(ctx)
}

// Submit finalizes a self-service workflow.
func (s *Service) Submit(ctx context.Context, applicantID domain.ApplicantID) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := ctrl.Submit(ctx); err != nil {
		return err
	}
	s.clearSnapshot(ctx, ctrl)
	return nil
}

// Complete force-finalizes an admin-assisted workflow.
func (s *Service) Complete(ctx context.Context, applicantID domain.ApplicantID) error {
	ctrl, err := s.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := ctrl.Complete(ctx); err != nil {
		return err
	}
	s.clearSnapshot(ctx, ctrl)
	return nil
}

func (s *Service) controllerOptions() []workflow.Option {
	var opts []workflow.Option
	if s.archive != nil {
		opts = append(opts, workflow.WithArchive(s.archive))
	}
	if s.compliance != nil {
		opts = append(opts, workflow.WithCompliancePublisher(s.compliance))
	}
	if s.opsAudit != nil {
		opts = append(opts, workflow.WithOpsPublisher(s.opsAudit))
	}
	if s.metrics != nil {
		opts = append(opts, workflow.WithMetrics(s.metrics))
	}
	opts = append(opts, workflow.WithLogger(s.logger))
	return opts
}

func (s *Service) findSnapshot(ctx context.Context, applicantID domain.ApplicantID) map[schema.FieldKey]any {
	if s.snapshots == nil {
		return nil
	}
	_, fields, err := s.snapshots.FindSnapshot(ctx, applicantID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "draft snapshot lookup failed",
				"applicant_id", applicantID,
				"error", err,
			)
		}
		return nil
	}
	return fields
}

// saveSnapshot refreshes the continuity cache. Best-effort: a cache failure
// never fails the mutation that triggered it.
func (s *Service) saveSnapshot(ctx context.Context, ctrl *workflow.Controller) {
	if s.snapshots == nil {
		return
	}
	err := s.snapshots.SaveSnapshot(ctx, ctrl.ApplicantID(), ctrl.AccountType(), ctrl.Snapshot())
	if err != nil {
		s.logger.WarnContext(ctx, "draft snapshot save failed",
			"applicant_id", ctrl.ApplicantID(),
			"error", err,
		)
	}
}

func (s *Service) clearSnapshot(ctx context.Context, ctrl *workflow.Controller) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.DeleteSnapshot(ctx, ctrl.ApplicantID()); err != nil {
		s.logger.WarnContext(ctx, "draft snapshot delete failed",
			"applicant_id", ctrl.ApplicantID(),
			"error", err,
		)
	}
}
