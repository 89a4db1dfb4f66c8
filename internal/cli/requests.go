package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/percent"
	"github.com/roach88/nbsync/internal/registry"
	"github.com/roach88/nbsync/internal/rpc"
	"github.com/roach88/nbsync/internal/server"
)

// RequestOptions holds flags shared by the commands that talk to a session.
type RequestOptions struct {
	*RootOptions
	Filename string
}

func (o *RequestOptions) addFilenameFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Filename, "filename", "f", "", "script or notebook path (required)")
	_ = cmd.MarkFlagRequired("filename")
}

// absFilename resolves --filename so the router sees the longest possible tail.
func (o *RequestOptions) absFilename() (string, error) {
	abs, err := filepath.Abs(o.Filename)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid filename", err)
	}
	return abs, nil
}

// perform forwards one session request through the router and returns the
// session's result. A reply with success=false is an ExitFailure.
func (o *RequestOptions) perform(ctx context.Context, command, notebookPath string, data any) (server.Reply, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return server.Reply{}, WrapExitError(ExitCommandError, "failed to encode request", err)
	}

	var reply server.Reply
	err = rpc.NewClient(o.RouterURL).Call(ctx, server.MethodPerform, server.PerformParams{
		NotebookPath: notebookPath,
		CommandName:  command,
		Data:         raw,
	}, &reply)
	if err != nil {
		var rerr *rpc.Error
		if errors.As(err, &rerr) {
			return server.Reply{}, WrapExitError(ExitFailure, "router rejected request", err)
		}
		return server.Reply{}, WrapExitError(ExitCommandError,
			fmt.Sprintf("unable to reach router at %s; is `nbsync router` running?", o.RouterURL), err)
	}
	if !reply.Success {
		o.Logger.Warn("request failed", "command", command, "path", notebookPath, "error", reply.Error)
		return reply, WrapExitError(ExitFailure, "request failed", errors.New(reply.Error))
	}
	o.Logger.Debug("request complete", "command", command, "path", reply.NotebookPath)
	return reply, nil
}

func decodeResult[T any](reply server.Reply) (T, error) {
	var v T
	if len(reply.Result) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(reply.Result, &v); err != nil {
		return v, WrapExitError(ExitFailure, "unexpected session reply", err)
	}
	return v, nil
}

// syncSummary is the text form of a SyncReply.
type syncSummary struct {
	server.SyncReply
	NotebookPath string `json:"-"`
}

func (s syncSummary) String() string {
	state := "complete"
	if !s.Complete {
		state = "sent, not acknowledged"
	}
	o := s.Ops
	return fmt.Sprintf("synced %s: %d command(s), %s (equal %d, insert %d, delete %d, replace %d, copy_output %d)",
		s.NotebookPath, s.Commands, state, o.Equal, o.Insert, o.Delete, o.Replace, o.CopyOutput)
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push a script's contents to its live notebook",
		Long: `Send the whole of a .sync.py script to the session serving the paired
notebook. Files without the sync extension are skipped.

Example:
  nbsync sync --filename analysis.sync.py`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}
	opts.addFilenameFlag(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, opts *RequestOptions) error {
	suffix := "." + opts.Config.Sync.Extension + ".py"
	if !strings.HasSuffix(opts.Filename, suffix) {
		opts.Logger.Info("not a sync script, skipping", "path", opts.Filename, "suffix", suffix)
		return nil
	}

	path, err := opts.absFilename()
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	reply, err := opts.perform(cmd.Context(), server.RequestSync, path, server.SyncRequest{
		BaseRequest: server.BaseRequest{FileName: path},
		Contents:    string(contents),
	})
	if err != nil {
		return err
	}
	res, err := decodeResult[server.SyncReply](reply)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		opts.Logger.Warn("sync not acknowledged", "path", reply.NotebookPath, "warning", res.Warning)
	}
	return opts.formatter(cmd).SuccessFor(reply.NotebookPath, syncSummary{SyncReply: res, NotebookPath: reply.NotebookPath})
}

// ExecuteOptions holds flags for the execute command.
type ExecuteOptions struct {
	RequestOptions
	LineNumber int
	Sync       bool
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecuteOptions{RequestOptions: RequestOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run the cell under the cursor",
		Long: `Run the cell that contains --linenumber (0-based) in the live notebook.

With --sync the script is synced first, so the cell runs as written.

Example:
  nbsync execute --filename analysis.sync.py --linenumber 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, opts)
		},
	}
	opts.addFilenameFlag(cmd)
	cmd.Flags().IntVarP(&opts.LineNumber, "linenumber", "l", 0, "0-based line the cursor is on")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "sync the script before executing")
	return cmd
}

func runExecute(cmd *cobra.Command, opts *ExecuteOptions) error {
	path, err := opts.absFilename()
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	index := percent.CellIndexAt(string(contents), opts.LineNumber)
	if index < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("line %d is not inside a cell", opts.LineNumber))
	}
	opts.Logger.Debug("resolved cell", "line", opts.LineNumber, "cell_index", index)

	req := server.ExecuteRequest{BaseRequest: server.BaseRequest{FileName: path}, CellIndex: index}
	if opts.Sync {
		req.Contents = string(contents)
	}
	reply, err := opts.perform(cmd.Context(), server.RequestExecute, path, req)
	if err != nil {
		return err
	}
	return opts.formatter(cmd).SuccessFor(reply.NotebookPath, fmt.Sprintf("executed cell %d of %s", index, reply.NotebookPath))
}

// NewExecuteAllCommand creates the execute-all command.
func NewExecuteAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "execute-all",
		Short: "Run every code cell of the live notebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.absFilename()
			if err != nil {
				return err
			}
			reply, err := opts.perform(cmd.Context(), server.RequestExecuteAll, path,
				server.ExecuteAllRequest{BaseRequest: server.BaseRequest{FileName: path}})
			if err != nil {
				return err
			}
			return opts.formatter(cmd).SuccessFor(reply.NotebookPath, "executed all cells of "+reply.NotebookPath)
		},
	}
	opts.addFilenameFlag(cmd)
	return cmd
}

// NewRestartCommand creates the restart command.
func NewRestartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the live notebook's kernel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.absFilename()
			if err != nil {
				return err
			}
			reply, err := opts.perform(cmd.Context(), server.RequestRestart, path, server.BaseRequest{FileName: path})
			if err != nil {
				return err
			}
			return opts.formatter(cmd).SuccessFor(reply.NotebookPath, "restarted kernel of "+reply.NotebookPath)
		},
	}
	opts.addFilenameFlag(cmd)
	return cmd
}

// statusSummary is the text form of a session status.
type statusSummary struct {
	server.StatusReply
}

func (s statusSummary) String() string {
	st := s.Status
	attached := "detached"
	if st.Attached {
		attached = "attached"
	}
	line := fmt.Sprintf("%s: %s, %d cell(s), %d sync(s)", st.Path, attached, st.Cells, st.Syncs)
	if st.LastRun != nil {
		line += fmt.Sprintf(", last run %s %s", st.LastRun.ID, st.LastRun.Status)
	}
	return line
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the session serving a notebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.absFilename()
			if err != nil {
				return err
			}
			reply, err := opts.perform(cmd.Context(), server.RequestGetStatus, path, server.BaseRequest{FileName: path})
			if err != nil {
				return err
			}
			res, err := decodeResult[server.StatusReply](reply)
			if err != nil {
				return err
			}
			return opts.formatter(cmd).SuccessFor(reply.NotebookPath, statusSummary{res})
		},
	}
	opts.addFilenameFlag(cmd)
	return cmd
}

// NewFocusCommand creates the focus command.
func NewFocusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecuteOptions{RequestOptions: RequestOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Scroll the live notebook to the cell under the cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.absFilename()
			if err != nil {
				return err
			}
			contents, err := os.ReadFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read script", err)
			}
			index := percent.CellIndexAt(string(contents), opts.LineNumber)
			if index < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("line %d is not inside a cell", opts.LineNumber))
			}
			reply, err := opts.perform(cmd.Context(), server.RequestFocusCell, path,
				server.FocusCellRequest{BaseRequest: server.BaseRequest{FileName: path}, CellIndex: index})
			if err != nil {
				return err
			}
			return opts.formatter(cmd).SuccessFor(reply.NotebookPath, fmt.Sprintf("focused cell %d of %s", index, reply.NotebookPath))
		},
	}
	opts.addFilenameFlag(cmd)
	cmd.Flags().IntVarP(&opts.LineNumber, "linenumber", "l", 0, "0-based line the cursor is on")
	return cmd
}

type entryList []registry.Entry

func (l entryList) String() string {
	if len(l) == 0 {
		return "no notebook servers registered"
	}
	var b strings.Builder
	for i, e := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%s", e.Path, e.Endpoint)
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the notebooks registered with the router",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries entryList
			if err := rpc.NewClient(rootOpts.RouterURL).Call(cmd.Context(), server.MethodList, nil, &entries); err != nil {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("unable to reach router at %s; is `nbsync router` running?", rootOpts.RouterURL), err)
			}
			if entries == nil {
				entries = entryList{}
			}
			return rootOpts.formatter(cmd).Success(entries)
		},
	}
}
