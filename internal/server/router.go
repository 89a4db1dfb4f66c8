package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/nbsync/internal/registry"
	"github.com/roach88/nbsync/internal/rpc"
)

// Router serves the registry methods and forwards notebook requests.
type Router struct {
	reg    *registry.Registry
	rpc    *rpc.Server
	logger *slog.Logger
}

// NewRouter creates a router around reg.
func NewRouter(reg *registry.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{reg: reg, rpc: rpc.NewServer("router", logger), logger: logger}
	r.rpc.Handle(MethodRegister, rpc.Method(r.register))
	r.rpc.Handle(MethodUnregister, rpc.Method(r.unregister))
	r.rpc.Handle(MethodList, rpc.Method(r.list))
	r.rpc.Handle(MethodPerform, rpc.Method(r.perform))
	return r
}

// Handler returns the router's HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.rpc
}

func (r *Router) register(_ context.Context, p RegisterParams) (Reply, error) {
	if p.NotebookPath == "" || p.Endpoint == "" {
		return Reply{}, rpc.Errorf(rpc.CodeInvalidParams, "notebook_path and endpoint are required")
	}
	r.reg.Register(p.NotebookPath, p.Endpoint)
	return Reply{Success: true, NotebookPath: p.NotebookPath}, nil
}

func (r *Router) unregister(_ context.Context, p UnregisterParams) (Reply, error) {
	ok := r.reg.Unregister(p.NotebookPath)
	return Reply{Success: ok, NotebookPath: p.NotebookPath}, nil
}

func (r *Router) list(context.Context, struct{}) ([]registry.Entry, error) {
	return r.reg.Entries(), nil
}

// perform resolves the notebook and forwards the request. Lookup failures
// and session errors are reported in the Reply rather than as RPC errors.
func (r *Router) perform(ctx context.Context, p PerformParams) (Reply, error) {
	if p.CommandName == "" {
		return Reply{}, rpc.Errorf(rpc.CodeInvalidParams, "command_name is required")
	}

	entry, err := r.reg.Resolve(p.NotebookPath)
	if err != nil {
		r.logger.Warn("unable to route request", "path", p.NotebookPath, "command", p.CommandName, "error", err)
		return Reply{Success: false, Error: err.Error(), NotebookPath: p.NotebookPath}, nil
	}

	data, err := retarget(p.Data, entry.Path)
	if err != nil {
		return Reply{}, rpc.Errorf(rpc.CodeInvalidParams, "data: %v", err)
	}

	var result json.RawMessage
	client := rpc.NewClient(string(entry.Endpoint))
	if err := client.Call(ctx, p.CommandName, data, &result); err != nil {
		r.logger.Warn("forwarded request failed", "path", entry.Path, "endpoint", entry.Endpoint, "command", p.CommandName, "error", err)
		return Reply{Success: false, Error: err.Error(), NotebookPath: entry.Path}, nil
	}
	r.logger.Debug("forwarded request", "path", entry.Path, "endpoint", entry.Endpoint, "command", p.CommandName)
	return Reply{Success: true, NotebookPath: entry.Path, Result: result}, nil
}

// retarget sets file_name in a request object to the registered path, so
// the session can find its notebook without matching again.
func retarget(data json.RawMessage, path string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("expected an object: %w", err)
		}
	}
	name, err := json.Marshal(path)
	if err != nil {
		return nil, err
	}
	fields["file_name"] = name
	return json.Marshal(fields)
}

// Announce registers a notebook with the router at routerURL.
func Announce(ctx context.Context, routerURL, notebookPath string, endpoint registry.Endpoint) error {
	var reply Reply
	params := RegisterParams{NotebookPath: notebookPath, Endpoint: endpoint}
	if err := rpc.NewClient(routerURL).Call(ctx, MethodRegister, params, &reply); err != nil {
		return fmt.Errorf("register %s: %w", notebookPath, err)
	}
	return nil
}

// Withdraw unregisters a notebook.
func Withdraw(ctx context.Context, routerURL, notebookPath string) error {
	var reply Reply
	if err := rpc.NewClient(routerURL).Call(ctx, MethodUnregister, UnregisterParams{NotebookPath: notebookPath}, &reply); err != nil {
		return fmt.Errorf("unregister %s: %w", notebookPath, err)
	}
	return nil
}
