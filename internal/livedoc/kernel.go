package livedoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/nbsync/internal/notebook"
)

// ErrNoKernel is returned by execution requests when no kernel is attached.
var ErrNoKernel = errors.New("no kernel attached to live document")

// Kernel executes cells on behalf of a live document.
type Kernel interface {
	Execute(ctx context.Context, cell notebook.Cell) (notebook.Output, error)
	Restart(ctx context.Context) error
}

// Run executes the cell at index with k and records its output.
func Run(ctx context.Context, d *Document, k Kernel, index int) error {
	if k == nil {
		return ErrNoKernel
	}
	snap := d.Snapshot()
	if index < 0 || index >= snap.Len() {
		return fmt.Errorf("execute cell %d: out of range [0,%d)", index, snap.Len())
	}
	cell := snap.Cells[index]
	if cell.Kind != notebook.KindCode {
		return nil
	}
	out, err := k.Execute(ctx, cell)
	if err != nil {
		return fmt.Errorf("execute cell %d: %w", index, err)
	}
	return d.SetOutput(index, out)
}

// RunAll executes every code cell in order, stopping at the first failure.
func RunAll(ctx context.Context, d *Document, k Kernel) error {
	if k == nil {
		return ErrNoKernel
	}
	for i := 0; i < d.Len(); i++ {
		if err := Run(ctx, d, k, i); err != nil {
			return err
		}
	}
	return nil
}
