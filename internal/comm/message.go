package comm

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

// Commands sent from the session to the live side.
const (
	CmdStartSync     = "start_sync"
	CmdGetCells      = "get_cells"
	CmdInsertCell    = "insert_cell"
	CmdDeleteCells   = "delete_cells"
	CmdReplaceCell   = "replace_cell"
	CmdAttachOutput  = "attach_output"
	CmdFinishSync    = "finish_sync"
	CmdExecute       = "execute"
	CmdExecuteAll    = "execute_all"
	CmdRestartKernel = "restart_kernel"
	CmdFocusCell     = "focus_cell"
)

// Replies sent from the live side to the session.
const (
	CmdCells        = "cells"
	CmdSyncComplete = "sync_complete"
	CmdStatus       = "status"
)

// Message is the envelope for every frame on the control channel.
type Message struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CellPayload carries insert_cell and replace_cell.
type CellPayload struct {
	Index    int    `json:"index"`
	CellType string `json:"cell_type"`
	Source   string `json:"source"`
}

// DeletePayload carries delete_cells. Indices refer to the document before the delete.
type DeletePayload struct {
	Indices []int `json:"cell_indices"`
}

// OutputPayload carries attach_output.
type OutputPayload struct {
	Index  int              `json:"index"`
	Output *notebook.Output `json:"output"`
}

// CellsPayload carries the live side's full document.
type CellsPayload struct {
	Cells []notebook.Cell `json:"cells"`
}

// ExecutePayload carries execute.
type ExecutePayload struct {
	CellIndex int `json:"cell_index"`
}

// SyncPayload carries finish_sync. The live side echoes it in sync_complete
// so a late acknowledgement cannot be matched to a newer sync.
type SyncPayload struct {
	Seq uint64 `json:"seq"`
}

// StatusPayload reports the outcome of a request that has no other reply.
type StatusPayload struct {
	Request string `json:"request"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// NewMessage encodes payload as the message data. A nil payload sends no data.
func NewMessage(command string, payload any) (Message, error) {
	m := Message{Command: command}
	if payload == nil {
		return m, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", command, err)
	}
	m.Data = data
	return m, nil
}

// Decode unmarshals the message data into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: missing data", m.Command)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Command, err)
	}
	return nil
}

// FromCommand converts a primitive edit into its wire message.
func FromCommand(c reconcile.Command) (Message, error) {
	switch c.Op {
	case reconcile.CmdInsert:
		return NewMessage(CmdInsertCell, CellPayload{Index: c.Index, CellType: c.Kind, Source: c.Source})
	case reconcile.CmdReplace:
		return NewMessage(CmdReplaceCell, CellPayload{Index: c.Index, CellType: c.Kind, Source: c.Source})
	case reconcile.CmdDelete:
		return NewMessage(CmdDeleteCells, DeletePayload{Indices: c.Indices})
	case reconcile.CmdAttachOutput:
		return NewMessage(CmdAttachOutput, OutputPayload{Index: c.Index, Output: c.Output})
	default:
		return Message{}, fmt.Errorf("no wire form for command %q", c.Op)
	}
}

// ToCommand converts an edit message back into a primitive command.
// ok is false for messages that are not edits.
func (m Message) ToCommand() (cmd reconcile.Command, ok bool, err error) {
	switch m.Command {
	case CmdInsertCell, CmdReplaceCell:
		var p CellPayload
		if err := m.Decode(&p); err != nil {
			return reconcile.Command{}, true, err
		}
		op := reconcile.CmdInsert
		if m.Command == CmdReplaceCell {
			op = reconcile.CmdReplace
		}
		return reconcile.Command{Op: op, Index: p.Index, Kind: p.CellType, Source: p.Source}, true, nil
	case CmdDeleteCells:
		var p DeletePayload
		if err := m.Decode(&p); err != nil {
			return reconcile.Command{}, true, err
		}
		first := 0
		if len(p.Indices) > 0 {
			first = p.Indices[0]
		}
		return reconcile.Command{Op: reconcile.CmdDelete, Index: first, Indices: p.Indices}, true, nil
	case CmdAttachOutput:
		var p OutputPayload
		if err := m.Decode(&p); err != nil {
			return reconcile.Command{}, true, err
		}
		return reconcile.Command{Op: reconcile.CmdAttachOutput, Index: p.Index, Output: p.Output}, true, nil
	default:
		return reconcile.Command{}, false, nil
	}
}
