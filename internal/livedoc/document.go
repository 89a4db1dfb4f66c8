// Package livedoc is a mutable in-memory notebook that supports exactly the
// primitive commands a live session accepts: insert, delete, replace and
// attach_output.
//
// It backs local sessions and the test frontend, and it is the reference
// model against which reconcile.Apply's command stream is checked.
package livedoc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

// Document is safe for concurrent use.
type Document struct {
	mu    sync.Mutex
	cells []notebook.Cell
}

// New seeds a document from a snapshot. The snapshot is copied.
func New(nb notebook.Notebook) *Document {
	return &Document{cells: notebook.New(nb.Cells...).Cells}
}

// Snapshot returns an immutable copy with positional indices.
func (d *Document) Snapshot() notebook.Notebook {
	d.mu.Lock()
	defer d.mu.Unlock()
	return notebook.New(d.cells...)
}

// Len returns the number of cells.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cells)
}

// Apply performs one primitive command.
func (d *Document) Apply(cmd reconcile.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Op {
	case reconcile.CmdInsert:
		if cmd.Index < 0 || cmd.Index > len(d.cells) {
			return fmt.Errorf("insert at %d: out of range [0,%d]", cmd.Index, len(d.cells))
		}
		cell := notebook.Cell{Kind: cmd.Kind, Source: notebook.SplitSource(cmd.Source)}
		d.cells = append(d.cells, notebook.Cell{})
		copy(d.cells[cmd.Index+1:], d.cells[cmd.Index:])
		d.cells[cmd.Index] = cell

	case reconcile.CmdDelete:
		indices := append([]int(nil), cmd.Indices...)
		sort.Sort(sort.Reverse(sort.IntSlice(indices)))
		for i, idx := range indices {
			if idx < 0 || idx >= len(d.cells) {
				return fmt.Errorf("delete %d: out of range [0,%d)", idx, len(d.cells))
			}
			if i > 0 && indices[i-1] == idx {
				return fmt.Errorf("delete %d: index listed twice", idx)
			}
		}
		for _, idx := range indices {
			d.cells = append(d.cells[:idx], d.cells[idx+1:]...)
		}

	case reconcile.CmdReplace:
		if cmd.Index < 0 || cmd.Index >= len(d.cells) {
			return fmt.Errorf("replace at %d: out of range [0,%d)", cmd.Index, len(d.cells))
		}
		// New source invalidates whatever the old source computed.
		d.cells[cmd.Index] = notebook.Cell{
			Kind:   cmd.Kind,
			Source: notebook.SplitSource(cmd.Source),
			ID:     d.cells[cmd.Index].ID,
		}

	case reconcile.CmdAttachOutput:
		if cmd.Index < 0 || cmd.Index >= len(d.cells) {
			return fmt.Errorf("attach_output at %d: out of range [0,%d)", cmd.Index, len(d.cells))
		}
		if cmd.Output == nil {
			d.cells[cmd.Index].Output = nil
			break
		}
		out := *cmd.Output
		d.cells[cmd.Index].Output = &out

	default:
		return fmt.Errorf("unknown command %q", cmd.Op)
	}

	// Indices are positional; keep them in step with the slice.
	for i := range d.cells {
		d.cells[i].Index = i
	}
	return nil
}

// ApplyAll performs cmds in order and stops at the first failure.
func (d *Document) ApplyAll(cmds []reconcile.Command) error {
	for i, cmd := range cmds {
		if err := d.Apply(cmd); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, cmd, err)
		}
	}
	return nil
}

// SetOutput records an execution result for the cell at index.
func (d *Document) SetOutput(index int, out notebook.Output) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.cells) {
		return fmt.Errorf("set output at %d: out of range [0,%d)", index, len(d.cells))
	}
	d.cells[index].Output = &out
	return nil
}
