package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

func TestMemory_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, &models.Job{JobID: "j1", FileHash: "abc", SourceKey: "incoming/a.pdf", Status: models.JobStatusRunning}))
	assert.Error(t, m.Create(ctx, &models.Job{JobID: "j1"}))

	require.NoError(t, m.SetStage(ctx, "j1", StageJobReceived))
	require.NoError(t, m.SetStage(ctx, "j1", StageTextExtracted))
	require.NoError(t, m.AddDegraded(ctx, "j1", "template:builtin", "template:builtin"))
	require.NoError(t, m.SetStatus(ctx, "j1", models.JobStatusComplete, ""))

	job, err := m.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, StageTextExtracted, job.Stage)
	assert.Equal(t, []string{"template:builtin"}, job.Degraded)
	assert.Equal(t, "incoming/a.pdf", job.SourceKey)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, []string{StageJobReceived, StageTextExtracted}, m.Stages("j1"))

	found, err := m.FindByHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "j1", found.JobID)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.SetStage(ctx, "nope", StageComplete), ErrNotFound)
}

func TestNop_SatisfiesTracker(t *testing.T) {
	var tr Tracker = Nop{}
	_, err := tr.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, tr.SetStage(context.Background(), "x", StageComplete))
}
