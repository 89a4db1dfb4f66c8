package server

import (
	"encoding/json"

	"github.com/roach88/nbsync/internal/reconcile"
	"github.com/roach88/nbsync/internal/registry"
	"github.com/roach88/nbsync/internal/session"
)

// Router methods.
const (
	MethodRegister   = "register_notebook_server"
	MethodUnregister = "unregister_notebook_server"
	MethodPerform    = "perform_notebook_request"
	MethodList       = "list_notebook_servers"
)

// Session request methods, as named on the wire.
const (
	RequestSync       = "SyncRequest"
	RequestExecute    = "ExecuteRequest"
	RequestExecuteAll = "ExecuteAllRequest"
	RequestRestart    = "RestartRequest"
	RequestGetStatus  = "GetStatusRequest"
	RequestFocusCell  = "FocusCellRequest"
)

// RegisterParams announces a session.
type RegisterParams struct {
	NotebookPath string            `json:"notebook_path"`
	Endpoint     registry.Endpoint `json:"endpoint"`
}

// UnregisterParams withdraws a session.
type UnregisterParams struct {
	NotebookPath string `json:"notebook_path"`
}

// PerformParams asks the router to forward a request.
type PerformParams struct {
	NotebookPath string          `json:"notebook_path"`
	CommandName  string          `json:"command_name"`
	Data         json.RawMessage `json:"data"`
}

// Reply is the router's answer to every mutating method.
type Reply struct {
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	NotebookPath string          `json:"notebook_path,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// BaseRequest is embedded by every session request.
type BaseRequest struct {
	FileName string `json:"file_name"`
}

// SyncRequest carries the full text of the edited script.
type SyncRequest struct {
	BaseRequest
	Contents string `json:"contents"`
}

// ExecuteRequest runs one cell. Non-empty Contents is synced first so
// the index refers to the script as the caller sees it.
type ExecuteRequest struct {
	BaseRequest
	CellIndex int    `json:"cell_index"`
	Contents  string `json:"contents,omitempty"`
}

// ExecuteAllRequest runs every code cell, syncing Contents first when set.
type ExecuteAllRequest struct {
	BaseRequest
	Contents string `json:"contents,omitempty"`
}

// FocusCellRequest scrolls the live view to one cell.
type FocusCellRequest struct {
	BaseRequest
	CellIndex int `json:"cell_index"`
}

// SyncReply summarizes a sync.
type SyncReply struct {
	Ops      reconcile.Summary `json:"ops"`
	Commands int               `json:"commands"`
	Complete bool              `json:"complete"`
	RunID    string            `json:"run_id,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

// StatusReply wraps the session state after a request.
type StatusReply struct {
	Status session.Status `json:"status"`
}
