package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "flowstate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func TestCreateListRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.Create(ctx, store.CreateInput{Title: "  Write report ", Priority: store.PriorityHigh,
		DueDate: "2026-10-16", TimeEstimate: intPtr(90), Tags: []string{"work", "work"}})
	require.NoError(t, err)
	b, err := s.Create(ctx, store.CreateInput{Title: "Buy milk", Status: store.StatusDone})
	require.NoError(t, err)

	assert.Equal(t, "Write report", a.Title)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	got := tasks[0]
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, store.StatusTodo, got.Status)
	assert.Equal(t, store.PriorityHigh, got.Priority)
	assert.Equal(t, "2026-10-16", got.DueDate)
	require.NotNil(t, got.TimeEstimate)
	assert.Equal(t, 90, *got.TimeEstimate)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", a.CreatedAt, got.CreatedAt)

	assert.Equal(t, b.ID, tasks[1].ID)
	assert.Nil(t, tasks[1].TimeEstimate)
	assert.Equal(t, []string{}, tasks[1].Tags)
}

func TestUpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	task, err := s.Create(ctx, store.CreateInput{Title: "Plan trip", DueDate: "2026-10-20", TimeEstimate: intPtr(30)})
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Hour) }
	status := store.StatusInProgress
	title := "\U0001F3D6\uFE0F Plan trip"
	updated, err := s.Update(ctx, task.ID, store.Patch{Status: &status, Title: &title, ClearDueDate: true, ClearTimeEstimate: true})
	require.NoError(t, err)
	assert.Equal(t, store.StatusInProgress, updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(base.Add(time.Hour)))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, store.StatusInProgress, got.Status)
	assert.Empty(t, got.DueDate)
	assert.Nil(t, got.TimeEstimate)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	task, err := s.Create(ctx, store.CreateInput{Title: "Keep me"})
	require.NoError(t, err)

	due := "next-ish"
	_, err = s.Update(ctx, task.ID, store.Patch{DueDate: &due})
	assert.True(t, errors.Is(err, store.ErrInvalid), "got %v", err)

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DueDate)
}

func TestMissingTaskIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Get(ctx, "tsk_missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.Update(ctx, "tsk_missing", store.Patch{})
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, "tsk_missing"), store.ErrNotFound))
}

func TestDeleteRemovesTask(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	task, err := s.Create(ctx, store.CreateInput{Title: "Gone soon"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, task.ID))
	tasks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.True(t, errors.Is(s.Delete(ctx, task.ID), store.ErrNotFound))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flowstate.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Create(ctx, store.CreateInput{Title: "Persisted"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Persisted", tasks[0].Title)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	_, err := openTestStore(t).Create(context.Background(), store.CreateInput{Title: "   "})
	assert.True(t, errors.Is(err, store.ErrInvalid))
}
