package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/ipynb"
)

// PairOptions holds flags for the pair command.
type PairOptions struct {
	*RootOptions
	Force bool
}

type pairResult struct {
	ipynb.Pair
}

func (p pairResult) String() string {
	return fmt.Sprintf("created %s\ncreated %s", p.Script, p.Notebook)
}

// NewPairCommand creates the pair command.
func NewPairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pair <base>",
		Short: "Create an empty script and notebook pair",
		Long: `Create base.sync.py and base.sync.ipynb. The base must not carry either
suffix. Existing files are kept unless --force is given.

Example:
  nbsync pair analysis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ipynb.NewPair(args[0], opts.Config.Sync.Extension, opts.Force)
			switch {
			case errors.Is(err, ipynb.ErrExists):
				return WrapExitError(ExitFailure, "refusing to overwrite (use --force)", err)
			case err != nil:
				return WrapExitError(ExitCommandError, "failed to create pair", err)
			}
			opts.Logger.Info("pair created", "script", p.Script, "notebook", p.Notebook)
			return opts.formatter(cmd).Success(pairResult{p})
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite existing files")
	return cmd
}
