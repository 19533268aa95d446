package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veristage/internal/kyc/clients"
	"veristage/internal/kyc/store"
	"veristage/internal/kyc/workflow"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

func newController(t *testing.T, applicantID domain.ApplicantID) *workflow.Controller {
	t.Helper()
	ctrl, err := workflow.New(workflow.ModeSelfService, applicantID, domain.AccountIndividual,
		&clients.MockDocumentClient{}, &clients.MockRecordClient{})
	require.NoError(t, err)
	return ctrl
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewSessionStore()
	applicantID := domain.ApplicantID(uuid.New())

	t.Run("find before put", func(t *testing.T) {
		_, err := s.Find(ctx, applicantID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("put then find", func(t *testing.T) {
		ctrl := newController(t, applicantID)
		require.NoError(t, s.Put(ctx, ctrl))

		found, err := s.Find(ctx, applicantID)
		require.NoError(t, err)
		assert.Same(t, ctrl, found)
	})

	t.Run("put replaces prior session", func(t *testing.T) {
		replacement := newController(t, applicantID)
		require.NoError(t, s.Put(ctx, replacement))

		found, err := s.Find(ctx, applicantID)
		require.NoError(t, err)
		assert.Same(t, replacement, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, applicantID))
		_, err := s.Find(ctx, applicantID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		assert.NoError(t, s.Delete(ctx, applicantID))
	})
}
