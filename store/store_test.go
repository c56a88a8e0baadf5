package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/deepresearch/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:      id,
		Query:   "Give me updates in the world of tech?",
		Plan:    []string{"Search news", "Validate"},
		Sources: []search.Result{{Title: "T", URL: "https://a.com", PublishedAt: "2025-01-01", Source: "Tavily", Icon: "📝"}},
		Report:  "# Report",
		Status:  StatusCompleted,

		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	s, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "deepresearch.db"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deepresearch.db"), s.Path())
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("r1", started)
	run.Fallbacks = []string{"search"}

	require.NoError(t, s.Save(ctx, run))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, run.Query, got.Query)
	assert.Equal(t, run.Plan, got.Plan)
	assert.Equal(t, run.Sources, got.Sources)
	assert.Equal(t, []string{"search"}, got.Fallbacks)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 3*time.Second, got.Duration())
}

func TestSave_Upsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := sampleRun("r1", time.Now())
	require.NoError(t, s.Save(ctx, run))

	run.Status = StatusFailed
	run.Error = "boom"
	require.NoError(t, s.Save(ctx, run))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSave_RequiresID(t *testing.T) {
	s := setupTestStore(t)
	assert.Error(t, s.Save(context.Background(), Run{}))
}

func TestGet_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), ErrRunNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.Save(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)

	require.NoError(t, s.Delete(ctx, "new"))
	runs, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, "deepresearch", filepath.Base(DefaultDir()))
}
