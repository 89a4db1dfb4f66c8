package cli

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/config"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Init  bool
	Force bool
}

type configText struct {
	*config.Config
}

func (c configText) String() string {
	data, err := toml.Marshal(c.Config)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and environment overrides.
With --init, write the defaults to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Init {
				return opts.formatter(cmd).Success(configText{opts.Config})
			}

			path := opts.ConfigPath
			if path == "" {
				p, err := config.Path()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to locate config file", err)
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !opts.Force {
				return NewExitError(ExitFailure, path+" already exists (use --force)")
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return WrapExitError(ExitCommandError, "failed to check config file", err)
			}
			if err := config.Default().Save(path); err != nil {
				return WrapExitError(ExitCommandError, "failed to write config", err)
			}
			return opts.formatter(cmd).Success("wrote " + path)
		},
	}
	cmd.Flags().BoolVar(&opts.Init, "init", false, "write the default configuration file")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file with --init")
	return cmd
}
