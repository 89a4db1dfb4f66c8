package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/nbsync/internal/ipynb"
	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/livedoc"
	"github.com/roach88/nbsync/internal/registry"
	"github.com/roach88/nbsync/internal/server"
	"github.com/roach88/nbsync/internal/session"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// serve runs srv on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, g *errgroup.Group, srv *http.Server, ln net.Listener) {
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// RouterOptions holds flags for the router command.
type RouterOptions struct {
	*RootOptions
	Listen string

	// Ready receives the bound address once the router is listening (for testing).
	Ready chan<- string
}

// NewRouterCommand creates the router command.
func NewRouterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RouterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "router",
		Short: "Run the router that forwards requests to notebook sessions",
		Long: `Run the router on the well-known port. Sessions register here; client
commands are forwarded to the session whose notebook path best matches.

Example:
  nbsync router
  nbsync router --listen 127.0.0.1:12517 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouter(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "address to listen on (default host:port from config)")
	return cmd
}

func runRouter(cmd *cobra.Command, opts *RouterOptions) error {
	addr := opts.Listen
	if addr == "" {
		addr = net.JoinHostPort(opts.Config.Router.Host, fmt.Sprint(opts.Config.Router.Port))
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	reg := registry.New(registry.WithExtension(opts.Config.Sync.Extension), registry.WithLogger(opts.Logger))
	router := server.NewRouter(reg, opts.Logger)
	srv := &http.Server{Handler: router.Handler(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	serve(ctx, g, srv, ln)

	opts.Logger.Info("router listening", "addr", ln.Addr().String())
	if opts.Ready != nil {
		opts.Ready <- ln.Addr().String()
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "router error", err)
	}
	opts.Logger.Info("router stopped")
	return nil
}

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	Listen  string
	Journal string

	// Kernel executes cells for the local document (for testing).
	Kernel livedoc.Kernel
	// Ready receives the session endpoint once it is registered (for testing).
	Ready chan<- string
}

// NewSessionCommand creates the session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session <notebook.sync.ipynb>",
		Short: "Serve a notebook as a live session",
		Long: `Load a notebook into a live document, serve it on a local port and
register it with the router. Live frontends attach over the /comm websocket.
The session unregisters itself on shutdown.

Example:
  nbsync session analysis.sync.ipynb`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Listen, "listen", "127.0.0.1:0", "address to serve the session on")
	cmd.Flags().StringVar(&opts.Journal, "db", "", "sync journal database (default journal.path from config)")
	return cmd
}

func runSession(cmd *cobra.Command, opts *SessionOptions, notebookPath string) error {
	path, err := filepath.Abs(notebookPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid notebook path", err)
	}
	nb, err := ipynb.Read(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load notebook", err)
	}

	cfg, err := sessionConfig(opts)
	if err != nil {
		return err
	}
	if store, ok := cfg.Recorder.(*journal.Store); ok {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				opts.Logger.Error("error closing journal", "error", closeErr)
			}
		}()
	}

	mgr := session.NewManager(cfg)
	mgr.Open(path, session.NewLocalChannel(livedoc.New(nb), opts.Kernel))

	ln, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	endpoint := registry.Endpoint("http://" + ln.Addr().String() + "/")
	srv := &http.Server{
		Handler:           server.NewSessionServer(mgr, opts.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	serve(ctx, g, srv, ln)

	if err := server.Announce(ctx, opts.RouterURL, path, endpoint); err != nil {
		stop()
		_ = g.Wait()
		return WrapExitError(ExitCommandError, "failed to register with router", err)
	}
	opts.Logger.Info("session serving", "path", path, "endpoint", endpoint, "cells", nb.Len())
	if opts.Ready != nil {
		opts.Ready <- string(endpoint)
	}

	g.Go(func() error {
		<-ctx.Done()
		withdrawCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Withdraw(withdrawCtx, opts.RouterURL, path); err != nil {
			opts.Logger.Warn("failed to unregister from router", "path", path, "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "session error", err)
	}
	opts.Logger.Info("session stopped", "path", path)
	return nil
}

// sessionConfig builds the shared session settings, opening the journal
// when one is configured.
func sessionConfig(opts *SessionOptions) (session.Config, error) {
	matcher, err := opts.Config.Matcher()
	if err != nil {
		return session.Config{}, WrapExitError(ExitCommandError, "invalid matcher", err)
	}
	ackTimeout, err := opts.Config.AckTimeout()
	if err != nil {
		return session.Config{}, WrapExitError(ExitCommandError, "invalid ack timeout", err)
	}
	cfg := session.Config{Matcher: matcher, AckTimeout: ackTimeout, Logger: opts.Logger}

	dbPath := opts.Journal
	if dbPath == "" {
		dbPath = opts.Config.Journal.Path
	}
	if dbPath == "" {
		return cfg, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return session.Config{}, WrapExitError(ExitCommandError, "failed to create journal directory", err)
	}
	store, err := journal.Open(dbPath)
	if err != nil {
		return session.Config{}, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	cfg.Recorder = store
	opts.Logger.Debug("journal open", "path", dbPath)
	return cfg, nil
}
