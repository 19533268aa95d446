//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/store"
	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
	"veristage/pkg/testutil/containers"
)

func archivedSubmission() workflow.Submission {
	return workflow.Submission{
		SubmissionID: domain.NewSubmissionID(),
		ApplicantID:  domain.ApplicantID(uuid.New()),
		AccountType:  domain.AccountIndividual,
		Fields: map[schema.FieldKey]any{
			schema.FieldFirstName:     "Amina",
			schema.FieldTermsAttested: true,
		},
		Documents: map[schema.SlotName]string{
			schema.SlotIDFront: "doc-123",
			schema.SlotIDBack:  "doc-124",
		},
		SubmittedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pc := containers.NewPostgresContainer(t)
	archive := store.NewPostgresArchive(pc.Pool)

	t.Run("save and find round-trip", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx, "submission_archive"))
		sub := archivedSubmission()
		require.NoError(t, archive.SaveSubmission(ctx, sub))

		found, err := archive.FindSubmission(ctx, sub.SubmissionID)
		require.NoError(t, err)

		assert.Equal(t, sub.SubmissionID, found.SubmissionID)
		assert.Equal(t, sub.ApplicantID, found.ApplicantID)
		assert.Equal(t, sub.AccountType, found.AccountType)
		assert.Equal(t, "Amina", found.Fields[schema.FieldFirstName])
		assert.Equal(t, true, found.Fields[schema.FieldTermsAttested])
		assert.Equal(t, sub.Documents, found.Documents)
		assert.False(t, found.ForceCompleted)
		assert.Empty(t, found.IncompleteStages)
		assert.WithinDuration(t, sub.SubmittedAt, found.SubmittedAt, time.Millisecond)
	})

	t.Run("force-completed submission keeps its incomplete stages", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx, "submission_archive"))
		sub := archivedSubmission()
		sub.ForceCompleted = true
		sub.IncompleteStages = []schema.StageID{schema.StageTax, schema.StageBank}
		require.NoError(t, archive.SaveSubmission(ctx, sub))

		found, err := archive.FindSubmission(ctx, sub.SubmissionID)
		require.NoError(t, err)
		assert.True(t, found.ForceCompleted)
		assert.Equal(t, []schema.StageID{schema.StageTax, schema.StageBank}, found.IncompleteStages)
	})

	t.Run("find missing submission", func(t *testing.T) {
		_, err := archive.FindSubmission(ctx, domain.NewSubmissionID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("rows are written once", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx, "submission_archive"))
		sub := archivedSubmission()
		require.NoError(t, archive.SaveSubmission(ctx, sub))
		assert.Error(t, archive.SaveSubmission(ctx, sub), "the archive never overwrites a submission")
	})
}
