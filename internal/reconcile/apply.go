package reconcile

import (
	"fmt"

	"github.com/roach88/nbsync/internal/notebook"
)

// EmitFunc receives primitive commands in the order they must be applied.
type EmitFunc func(Command) error

// Apply translates ops into primitive commands and passes each to emit.
//
// Opcodes are processed in order in a single loop. A Replace whose sides
// differ in length is expanded into paired replaces plus one Insert or
// Delete remainder, which is pushed onto the same work stack rather than
// handled recursively.
//
// CopyOutput opcodes address the updated index directly. Matcher.Recover
// appends them after every structural opcode, at which point the live
// document already has the updated shape and updated indices are physical.
// A CopyOutput whose current cell has no output emits nothing.
func Apply(ops []OpAction, current, updated notebook.Notebook, emit EmitFunc) error {
	a := applier{current: current, updated: updated, emit: emit}

	for _, op := range ops {
		pending := []OpAction{op}
		for len(pending) > 0 {
			next := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			rest, err := a.step(next)
			if err != nil {
				return err
			}
			if rest != nil {
				pending = append(pending, *rest)
			}
		}
	}
	return nil
}

// ApplyAll collects the commands Apply would emit.
func ApplyAll(ops []OpAction, current, updated notebook.Notebook) ([]Command, error) {
	var cmds []Command
	err := Apply(ops, current, updated, func(c Command) error {
		cmds = append(cmds, c)
		return nil
	})
	return cmds, err
}

type applier struct {
	current notebook.Notebook
	updated notebook.Notebook
	emit    EmitFunc

	// shift is the physical index of current cell i minus i.
	shift int
}

// step applies one opcode and returns the remainder of an uneven Replace.
func (a *applier) step(op OpAction) (*OpAction, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if op.Current.End > a.current.Len() || op.Updated.End > a.updated.Len() {
		return nil, &InvalidOpcodeError{Op: op, Reason: "range exceeds notebook length"}
	}

	switch op.Kind {
	case OpEqual:
		return nil, nil

	case OpDelete:
		indices := make([]int, 0, op.Current.Len())
		for i := op.Current.Start; i < op.Current.End; i++ {
			indices = append(indices, i+a.shift)
		}
		if err := a.send(Command{Op: CmdDelete, Index: indices[0], Indices: indices}); err != nil {
			return nil, err
		}
		a.shift -= op.Current.Len()
		return nil, nil

	case OpInsert:
		for u := op.Updated.Start; u < op.Updated.End; u++ {
			cell := a.updated.Cells[u]
			if err := a.send(Command{Op: CmdInsert, Index: u, Kind: cell.Kind, Source: cell.JoinedSource()}); err != nil {
				return nil, err
			}
		}
		a.shift += op.Updated.Len()
		return nil, nil

	case OpReplace:
		paired := min(op.Current.Len(), op.Updated.Len())
		for k := 0; k < paired; k++ {
			cell := a.updated.Cells[op.Updated.Start+k]
			at := op.Current.Start + k + a.shift
			if err := a.send(Command{Op: CmdReplace, Index: at, Kind: cell.Kind, Source: cell.JoinedSource()}); err != nil {
				return nil, err
			}
		}
		switch {
		case op.Updated.Len() > paired:
			rest := mustOp(OpInsert,
				Range{op.Current.End, op.Current.End},
				Range{op.Updated.Start + paired, op.Updated.End})
			return &rest, nil
		case op.Current.Len() > paired:
			rest := mustOp(OpDelete,
				Range{op.Current.Start + paired, op.Current.End},
				Range{op.Updated.End, op.Updated.End})
			return &rest, nil
		}
		return nil, nil

	case OpCopyOutput:
		out := a.current.Cells[op.Current.Start].Output
		if out == nil {
			return nil, nil
		}
		o := *out
		return nil, a.send(Command{Op: CmdAttachOutput, Index: op.Updated.Start, Output: &o})

	default:
		return nil, &UnsupportedOpcodeError{Op: op}
	}
}

func (a *applier) send(c Command) error {
	if err := a.emit(c); err != nil {
		return fmt.Errorf("emit %s: %w", c.Op, err)
	}
	return nil
}
