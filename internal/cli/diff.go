package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/ipynb"
	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/percent"
	"github.com/roach88/nbsync/internal/reconcile"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Threshold float64
	Scorer    string
}

// DiffResult is the offline reconciliation plan.
type DiffResult struct {
	Ops      []reconcile.OpAction `json:"ops"`
	Commands []reconcile.Command  `json:"commands"`
	Summary  reconcile.Summary    `json:"summary"`
}

func (d DiffResult) String() string {
	var b strings.Builder
	b.WriteString("opcodes:\n")
	for _, op := range d.Ops {
		fmt.Fprintf(&b, "  %s\n", op)
	}
	b.WriteString("commands:\n")
	if len(d.Commands) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, c := range d.Commands {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	s := d.Summary
	fmt.Fprintf(&b, "summary: equal %d, insert %d, delete %d, replace %d, copy_output %d",
		s.Equal, s.Insert, s.Delete, s.Replace, s.CopyOutput)
	return b.String()
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <current> <updated>",
		Short: "Show how a sync would reconcile two notebooks",
		Long: `Compute the opcodes and primitive commands that would turn <current>
into <updated>, without a running session. Either side may be a .ipynb
notebook or a percent-format script.

Example:
  nbsync diff analysis.sync.ipynb analysis.sync.py
  nbsync diff --scorer levenshtein --threshold 0.8 old.ipynb new.py`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, args[0], args[1])
		},
	}
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", -1, "similarity threshold (default from config)")
	cmd.Flags().StringVar(&opts.Scorer, "scorer", "", "similarity scorer: ratio|levenshtein (default from config)")
	return cmd
}

func runDiff(cmd *cobra.Command, opts *DiffOptions, currentPath, updatedPath string) error {
	current, err := loadNotebook(currentPath)
	if err != nil {
		return err
	}
	updated, err := loadNotebook(updatedPath)
	if err != nil {
		return err
	}

	threshold := opts.Config.Sync.SimilarityThreshold
	if opts.Threshold >= 0 {
		threshold = opts.Threshold
	}
	if threshold > 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("threshold %v must be within [0,1]", threshold))
	}
	name := opts.Config.Sync.Scorer
	if opts.Scorer != "" {
		name = opts.Scorer
	}
	scorer, err := reconcile.ScorerByName(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid scorer", err)
	}

	ops := reconcile.NewMatcher(threshold, scorer).Recover(reconcile.Align(current, updated), current, updated)
	cmds, err := reconcile.ApplyAll(ops, current, updated)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to plan commands", err)
	}
	if cmds == nil {
		cmds = []reconcile.Command{}
	}
	return opts.formatter(cmd).Success(DiffResult{Ops: ops, Commands: cmds, Summary: reconcile.Summarize(ops)})
}

// loadNotebook reads a .ipynb file, or parses anything else as a percent script.
func loadNotebook(path string) (notebook.Notebook, error) {
	if strings.HasSuffix(path, ".ipynb") {
		nb, err := ipynb.Read(path)
		if err != nil {
			return notebook.Notebook{}, WrapExitError(ExitCommandError, "failed to read notebook", err)
		}
		return nb, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return notebook.Notebook{}, WrapExitError(ExitCommandError, "failed to read script", err)
	}
	return percent.Parse(string(data)), nil
}
