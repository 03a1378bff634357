package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, RunKindResolve, "dataset.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, RunKindResolve, got.Kind)
	assert.Equal(t, "dataset.csv", got.Input)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, RunKindInsights, "A05 analysis")
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, RunStatusRunning))

	result := map[string]any{"rows": 42}
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got.Result, &decoded))
	assert.Equal(t, float64(42), decoded["rows"])
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, RunKindResolve, "dataset.csv")
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, "annex missing"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "annex missing", got.Error)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, st.UpdateRunStatus(ctx, "missing", RunStatusRunning))
	assert.Error(t, st.CompleteRun(ctx, "missing", nil))
	assert.Error(t, st.FailRun(ctx, "missing", "oops"))
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, RunKindResolve, "a.csv")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, RunKindInsights, "b.csv")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, r1.ID, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resolves, err := st.ListRuns(ctx, RunFilter{Kind: RunKindResolve})
	require.NoError(t, err)
	require.Len(t, resolves, 1)
	assert.Equal(t, r1.ID, resolves[0].ID)

	failed, err := st.ListRuns(ctx, RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
