package session

import (
	"context"
	"fmt"

	"github.com/roach88/nbsync/internal/comm"
	"github.com/roach88/nbsync/internal/livedoc"
	"github.com/roach88/nbsync/internal/notebook"
)

// Channel is the session's view of a live document.
type Channel interface {
	// Snapshot returns the live document as it is now.
	Snapshot(ctx context.Context) (notebook.Notebook, error)
	// Send delivers one control message.
	Send(ctx context.Context, msg comm.Message) error
	// Acks yields the sequence number of each acknowledged finish_sync.
	Acks() <-chan uint64
}

// LocalChannel drives an in-process livedoc.Document. It acknowledges
// finish_sync immediately.
type LocalChannel struct {
	doc    *livedoc.Document
	kernel livedoc.Kernel
	acks   chan uint64
}

// NewLocalChannel wraps doc. kernel may be nil, in which case execution
// requests fail with livedoc.ErrNoKernel.
func NewLocalChannel(doc *livedoc.Document, kernel livedoc.Kernel) *LocalChannel {
	return &LocalChannel{doc: doc, kernel: kernel, acks: make(chan uint64, 1)}
}

// Document returns the wrapped document.
func (c *LocalChannel) Document() *livedoc.Document {
	return c.doc
}

// Snapshot implements Channel.
func (c *LocalChannel) Snapshot(context.Context) (notebook.Notebook, error) {
	return c.doc.Snapshot(), nil
}

// Send implements Channel.
func (c *LocalChannel) Send(ctx context.Context, msg comm.Message) error {
	if cmd, ok, err := msg.ToCommand(); ok {
		if err != nil {
			return err
		}
		return c.doc.Apply(cmd)
	}

	switch msg.Command {
	case comm.CmdStartSync, comm.CmdFocusCell:
		return nil
	case comm.CmdFinishSync:
		var p comm.SyncPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		// Keep only the newest ack.
		select {
		case <-c.acks:
		default:
		}
		c.acks <- p.Seq
		return nil
	case comm.CmdExecute:
		var p comm.ExecutePayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		return livedoc.Run(ctx, c.doc, c.kernel, p.CellIndex)
	case comm.CmdExecuteAll:
		return livedoc.RunAll(ctx, c.doc, c.kernel)
	case comm.CmdRestartKernel:
		if c.kernel == nil {
			return livedoc.ErrNoKernel
		}
		return c.kernel.Restart(ctx)
	default:
		return fmt.Errorf("local channel: unsupported command %q", msg.Command)
	}
}

// Acks implements Channel.
func (c *LocalChannel) Acks() <-chan uint64 {
	return c.acks
}
