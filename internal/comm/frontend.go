package comm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/roach88/nbsync/internal/livedoc"
)

// Frontend is the live side of a control channel: it dials a session server
// and applies every edit it receives to a local document.
type Frontend struct {
	ws     *websocket.Conn
	doc    *livedoc.Document
	kernel livedoc.Kernel
	logger *slog.Logger

	writeMu sync.Mutex
}

// FrontendOption configures a Frontend.
type FrontendOption func(*Frontend)

// WithKernel lets the frontend serve execute and restart requests.
func WithKernel(k livedoc.Kernel) FrontendOption {
	return func(f *Frontend) { f.kernel = k }
}

// WithFrontendLogger sets the frontend's logger.
func WithFrontendLogger(logger *slog.Logger) FrontendOption {
	return func(f *Frontend) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Dial connects to a session server's control endpoint, e.g. ws://127.0.0.1:8123/comm.
func Dial(ctx context.Context, url string, doc *livedoc.Document, opts ...FrontendOption) (*Frontend, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	f := &Frontend{ws: ws, doc: doc, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Document returns the document the frontend edits.
func (f *Frontend) Document() *livedoc.Document {
	return f.doc
}

// Run serves frames until the connection closes or ctx is done.
// A clean close by either side returns nil.
func (f *Frontend) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { f.ws.Close() })
	defer stop()

	for {
		var msg Message
		if err := f.ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read control frame: %w", err)
		}
		if err := f.handle(ctx, msg); err != nil {
			return err
		}
	}
}

// Close sends a close frame and closes the connection.
func (f *Frontend) Close() error {
	f.writeMu.Lock()
	_ = f.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	f.writeMu.Unlock()
	return f.ws.Close()
}

func (f *Frontend) handle(ctx context.Context, msg Message) error {
	if cmd, ok, err := msg.ToCommand(); ok {
		if err == nil {
			err = f.doc.Apply(cmd)
		}
		if err != nil {
			f.logger.Warn("edit rejected", "command", msg.Command, "error", err)
			return f.reply(CmdStatus, StatusPayload{Request: msg.Command, Error: err.Error()})
		}
		return nil
	}

	switch msg.Command {
	case CmdStartSync:
		f.logger.Debug("sync started")
		return nil

	case CmdFocusCell:
		var p ExecutePayload
		if err := msg.Decode(&p); err == nil {
			f.logger.Debug("focus requested", "cell_index", p.CellIndex)
		}
		return nil

	case CmdGetCells:
		return f.reply(CmdCells, CellsPayload{Cells: f.doc.Snapshot().Cells})

	case CmdFinishSync:
		var p SyncPayload
		if len(msg.Data) > 0 {
			if err := msg.Decode(&p); err != nil {
				f.logger.Warn("malformed finish_sync", "error", err)
			}
		}
		return f.reply(CmdSyncComplete, p)

	case CmdExecute:
		var p ExecutePayload
		err := msg.Decode(&p)
		if err == nil {
			err = livedoc.Run(ctx, f.doc, f.kernel, p.CellIndex)
		}
		return f.replyStatus(msg.Command, err)

	case CmdExecuteAll:
		return f.replyStatus(msg.Command, livedoc.RunAll(ctx, f.doc, f.kernel))

	case CmdRestartKernel:
		err := livedoc.ErrNoKernel
		if f.kernel != nil {
			err = f.kernel.Restart(ctx)
		}
		return f.replyStatus(msg.Command, err)

	default:
		f.logger.Debug("ignoring frame", "command", msg.Command)
		return nil
	}
}

func (f *Frontend) replyStatus(request string, err error) error {
	p := StatusPayload{Request: request, OK: err == nil}
	if err != nil {
		p.Error = err.Error()
	}
	return f.reply(CmdStatus, p)
}

func (f *Frontend) reply(command string, payload any) error {
	msg, err := NewMessage(command, payload)
	if err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := f.ws.WriteJSON(msg); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return fmt.Errorf("reply %s: %w", command, err)
	}
	return nil
}
