package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Notebook string
	Limit    int
}

type runList []journal.Run

func (l runList) String() string {
	if len(l) == 0 {
		return "no sync runs recorded"
	}
	var b strings.Builder
	for i, r := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %-8s  %3d cmd  %s",
			r.StartedAt.UTC().Format(time.RFC3339), r.ID, r.Status, r.Commands, r.NotebookPath)
		if r.Error != "" {
			fmt.Fprintf(&b, "  (%s)", r.Error)
		}
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs, newest first",
		Long: `List the sync runs recorded in the journal.

Example:
  nbsync history --limit 10
  nbsync history --notebook analysis.sync.ipynb --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "sync journal database (default journal.path from config)")
	cmd.Flags().StringVar(&opts.Notebook, "notebook", "", "only runs for this notebook")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Journal.Path
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no journal configured; pass --db")
	}

	store, err := journal.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			opts.Logger.Error("error closing journal", "error", closeErr)
		}
	}()

	path := opts.Notebook
	if path != "" {
		if path, err = filepath.Abs(path); err != nil {
			return WrapExitError(ExitCommandError, "invalid notebook path", err)
		}
	}
	runs, err := store.List(cmd.Context(), journal.ListOptions{Path: path, Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	return opts.formatter(cmd).Success(runList(runs))
}
