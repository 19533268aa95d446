package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veristage/pkg/domain"
	audit "veristage/pkg/platform/audit"
	"veristage/pkg/platform/audit/store/memory"
)

func TestListByApplicant_FiltersAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := domain.ApplicantID(uuid.New())
	second := domain.ApplicantID(uuid.New())

	require.NoError(t, store.Append(ctx, audit.Event{ApplicantID: first, Action: audit.ActionStageAdvanced, Stage: 1}))
	require.NoError(t, store.Append(ctx, audit.Event{ApplicantID: second, Action: audit.ActionStageAdvanced, Stage: 1}))
	require.NoError(t, store.Append(ctx, audit.Event{ApplicantID: first, Action: audit.ActionSubmitted, Stage: 8}))

	events, err := store.ListByApplicant(ctx, first)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionStageAdvanced, events[0].Action)
	assert.Equal(t, audit.ActionSubmitted, events[1].Action)

	assert.Len(t, store.All(), 3)
}

func TestListByApplicant_UnknownApplicant(t *testing.T) {
	store := memory.New()
	events, err := store.ListByApplicant(context.Background(), domain.ApplicantID(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, events)
}
