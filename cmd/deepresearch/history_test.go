package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/search"
	"github.com/hupe1980/deepresearch/store"
)

func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(dir, store.DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	started := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:         "run-old",
			Query:      "Quantum networking",
			Plan:       []string{"Search news"},
			Status:     store.StatusFailed,
			Error:      "context deadline exceeded",
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
		},
		{
			ID:         "run-new",
			Query:      "Latest developments in AI chips",
			Plan:       []string{"Search news", "Compare vendors"},
			Sources:    []search.Result{{Title: "Chips", URL: "https://chips.example", Source: "Tavily"}},
			Report:     "## Introduction\nChips are fast.",
			Fallbacks:  []string{"search"},
			Status:     store.StatusCompleted,
			StartedAt:  started.Add(time.Hour),
			FinishedAt: started.Add(time.Hour + 3*time.Second),
		},
	}
	for _, r := range runs {
		require.NoError(t, st.Save(context.Background(), r))
	}

	return dir
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestHistoryList(t *testing.T) {
	dir := seedHistory(t)

	out, err := executeRoot(t, "history", "--store-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "run-new")
	assert.Contains(t, out, "completed (fallback: search)")
	assert.Contains(t, out, "failed")
	assert.Less(t, bytes.Index([]byte(out), []byte("run-new")), bytes.Index([]byte(out), []byte("run-old")))
}

func TestHistoryList_Limit(t *testing.T) {
	dir := seedHistory(t)

	out, err := executeRoot(t, "history", "--store-dir", dir, "--limit", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "run-new")
	assert.NotContains(t, out, "run-old")
}

func TestHistoryList_Empty(t *testing.T) {
	out, err := executeRoot(t, "history", "--store-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No research runs recorded.")
}

func TestHistoryShow(t *testing.T) {
	dir := seedHistory(t)

	out, err := executeRoot(t, "history", "show", "run-new", "--store-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Query:   Latest developments in AI chips")
	assert.Contains(t, out, "2. Compare vendors")
	assert.Contains(t, out, "1. Chips (Tavily)")
	assert.Contains(t, out, "   URL: https://chips.example")
	assert.Contains(t, out, "Final Report:")
}

func TestHistoryShow_Failed(t *testing.T) {
	dir := seedHistory(t)

	out, err := executeRoot(t, "history", "show", "run-old", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Error:   context deadline exceeded")
	assert.NotContains(t, out, "Final Report:")
}

func TestHistoryShow_NotFound(t *testing.T) {
	dir := seedHistory(t)

	_, err := executeRoot(t, "history", "show", "missing", "--store-dir", dir)
	require.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestHistoryDelete(t *testing.T) {
	dir := seedHistory(t)

	out, err := executeRoot(t, "history", "delete", "run-old", "--store-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run run-old")

	_, err = executeRoot(t, "history", "delete", "run-old", "--store-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no run with id "run-old"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
