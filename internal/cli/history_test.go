package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/reconcile"
	"github.com/roach88/nbsync/internal/testutil"
)

func seedJournal(t *testing.T, path string) {
	t.Helper()
	store, err := journal.Open(path, journal.WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []journal.Run{
		{NotebookPath: "/w/a.sync.ipynb", StartedAt: base, FinishedAt: base, Status: journal.StatusComplete,
			Ops: reconcile.Summary{Equal: 2}, Commands: 0},
		{NotebookPath: "/w/b.sync.ipynb", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute),
			Status: journal.StatusTimeout, Commands: 3, Error: "no acknowledgement"},
		{NotebookPath: "/w/a.sync.ipynb", StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute),
			Status: journal.StatusComplete, Ops: reconcile.Summary{Insert: 1}, Commands: 1},
	}
	for _, r := range runs {
		_, err := store.Record(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestHistoryCommand(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "journal.db")
	seedJournal(t, db)

	out, _, err := runCLI(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-01-01T00:02:00Z  run-0003  complete    1 cmd  /w/a.sync.ipynb\n"+
			"2024-01-01T00:01:00Z  run-0002  timeout     3 cmd  /w/b.sync.ipynb  (no acknowledgement)\n"+
			"2024-01-01T00:00:00Z  run-0001  complete    0 cmd  /w/a.sync.ipynb\n",
		out)
}

func TestHistoryCommand_FilterAndLimit(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "journal.db")
	seedJournal(t, db)

	out, _, err := runCLI(t, "--format", "json", "history", "--db", db, "--notebook", "/w/a.sync.ipynb", "--limit", "1")
	require.NoError(t, err)

	env := decodeEnvelope(t, out)
	var runs []journal.Run
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-0003", runs[0].ID)
	assert.Equal(t, 1, runs[0].Ops.Insert)
}

func TestHistoryCommand_Empty(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "history", "--db", filepath.Join(dir, "fresh.db"))
	require.NoError(t, err)
	assert.Equal(t, "no sync runs recorded\n", out)
}

func TestHistoryCommand_DefaultsToConfiguredJournal(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "custom.db")
	seedJournal(t, db)
	cfgPath := filepath.Join(dir, "nbsync.toml")
	require.NoError(t, writeFile(cfgPath, "[journal]\npath = '"+db+"'\n"))

	out, _, err := runCLI(t, "--config", cfgPath, "history", "--limit", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "run-0001")
	assert.Contains(t, out, "run-0003")
}
