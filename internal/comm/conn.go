package comm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/nbsync/internal/notebook"
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("control channel closed")

// WriteTimeout bounds a single frame write when the context has no deadline.
const WriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Sessions listen on loopback; browsers attaching from a notebook UI
	// send their own origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Conn is the session side of a control channel.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	cells chan notebook.Notebook
	acks  chan uint64

	statusMu   sync.Mutex
	lastStatus *StatusPayload

	done      chan struct{}
	closeOnce sync.Once
}

// Accept upgrades an HTTP request to a control channel and starts reading.
func Accept(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade control channel: %w", err)
	}
	return newConn(ws, logger), nil
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		ws:     ws,
		logger: logger,
		cells:  make(chan notebook.Notebook, 1),
		acks:   make(chan uint64, 4),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Snapshot asks the live side for its document and waits for the reply.
func (c *Conn) Snapshot(ctx context.Context) (notebook.Notebook, error) {
	// Drop a reply left over from an abandoned request.
	select {
	case <-c.cells:
	default:
	}
	msg, _ := NewMessage(CmdGetCells, nil)
	if err := c.Send(ctx, msg); err != nil {
		return notebook.Notebook{}, err
	}
	select {
	case nb := <-c.cells:
		return nb, nil
	case <-c.done:
		return notebook.Notebook{}, ErrClosed
	case <-ctx.Done():
		return notebook.Notebook{}, fmt.Errorf("waiting for cells: %w", ctx.Err())
	}
}

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(WriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(msg); err != nil {
		// A websocket write deadline cannot be recovered from.
		c.Close()
		return fmt.Errorf("send %s: %w", msg.Command, err)
	}
	return nil
}

// Acks delivers the sequence number echoed by each sync_complete frame.
// A frame without data reports sequence zero.
func (c *Conn) Acks() <-chan uint64 {
	return c.acks
}

// LastStatus returns the most recent status frame, if any.
func (c *Conn) LastStatus() (StatusPayload, bool) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.lastStatus == nil {
		return StatusPayload{}, false
	}
	return *c.lastStatus, true
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close ends the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("control channel read ended", "error", err)
			}
			return
		}

		switch msg.Command {
		case CmdCells:
			var p CellsPayload
			if err := msg.Decode(&p); err != nil {
				c.logger.Warn("dropping malformed cells frame", "error", err)
				continue
			}
			nb := notebook.New(p.Cells...)
			// Keep only the newest reply.
			select {
			case <-c.cells:
			default:
			}
			c.cells <- nb

		case CmdSyncComplete:
			var p SyncPayload
			if len(msg.Data) > 0 {
				if err := msg.Decode(&p); err != nil {
					c.logger.Warn("dropping malformed sync_complete frame", "error", err)
					continue
				}
			}
			// Drop the oldest ack rather than block the reader.
			select {
			case c.acks <- p.Seq:
			default:
				select {
				case <-c.acks:
				default:
				}
				c.acks <- p.Seq
			}

		case CmdStatus:
			var p StatusPayload
			if err := msg.Decode(&p); err != nil {
				c.logger.Warn("dropping malformed status frame", "error", err)
				continue
			}
			c.statusMu.Lock()
			c.lastStatus = &p
			c.statusMu.Unlock()
			if !p.OK {
				c.logger.Warn("live side reported failure", "request", p.Request, "error", p.Error)
			}

		default:
			c.logger.Debug("ignoring frame", "command", msg.Command)
		}
	}
}
