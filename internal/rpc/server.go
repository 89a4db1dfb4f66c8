package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"
)

// MaxMessageBytes bounds one frame; notebooks travel inside sync requests.
const MaxMessageBytes = 32 << 20

// HandlerFunc serves one method.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Method adapts a typed function into a HandlerFunc. Params that fail to
// decode into P produce CodeInvalidParams.
func Method[P, R any](fn func(context.Context, P) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, Errorf(CodeInvalidParams, "invalid params: %v", err)
			}
		}
		return fn(ctx, p)
	}
}

// Server upgrades each HTTP request to a websocket and dispatches the
// JSON-RPC requests read from it to registered methods. Requests on one
// connection are served in order.
type Server struct {
	name     string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	methods map[string]HandlerFunc
}

// NewServer creates a server. name appears in log lines.
func NewServer(name string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		name:     name,
		logger:   logger,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		methods:  make(map[string]HandlerFunc),
	}
}

// Handle registers fn for method, replacing any previous handler.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[method] = fn
}

// ServeHTTP implements http.Handler. It returns once the peer disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("rejected non-websocket request", "server", s.name, "error", err)
		return
	}
	ws.SetReadLimit(MaxMessageBytes)

	conn := jsonrpc2.NewConn(r.Context(), wsstream.NewObjectStream(ws),
		jsonrpc2.HandlerWithError(s.handle),
		jsonrpc2.SetLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug)))
	<-conn.DisconnectNotify()
}

func (s *Server) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	s.mu.RLock()
	fn, ok := s.methods[req.Method]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("unknown method", "server", s.name, "method", req.Method)
		return nil, Errorf(CodeMethodNotFound, "method %q not found", req.Method)
	}

	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	start := time.Now()
	result, err := fn(ctx, params)
	if err != nil {
		s.logger.Info("request failed", "server", s.name, "method", req.Method, "error", err, "elapsed", time.Since(start))
		return nil, asError(err)
	}
	s.logger.Debug("request served", "server", s.name, "method", req.Method, "elapsed", time.Since(start))
	return result, nil
}
