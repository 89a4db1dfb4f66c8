package rpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"
)

// DefaultTimeout bounds a call when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// Client calls a Server at URL.
type Client struct {
	URL    string
	Dialer *websocket.Dialer
}

// NewClient creates a client. url may use the http, https, ws or wss scheme.
func NewClient(url string) *Client {
	return &Client{URL: url, Dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second}}
}

// Call invokes method with params and decodes the result into result,
// which may be nil to discard it. A JSON-RPC error is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, _, err := dialer.DialContext(ctx, wsURL(c.URL), nil)
	if err != nil {
		return fmt.Errorf("call %s at %s: %w", method, c.URL, err)
	}
	ws.SetReadLimit(MaxMessageBytes)

	conn := jsonrpc2.NewConn(ctx, wsstream.NewObjectStream(ws), noHandler{})
	defer conn.Close()

	if err := conn.Call(ctx, method, params, result); err != nil {
		if _, ok := err.(*Error); ok {
			return err
		}
		return fmt.Errorf("call %s at %s: %w", method, c.URL, err)
	}
	return nil
}

// wsURL maps an http(s) URL onto the matching websocket scheme.
func wsURL(url string) string {
	switch {
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return url
}

// noHandler drops server-initiated requests; servers never send any.
type noHandler struct{}

func (noHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}
