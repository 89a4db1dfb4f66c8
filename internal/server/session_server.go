package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roach88/nbsync/internal/comm"
	"github.com/roach88/nbsync/internal/percent"
	"github.com/roach88/nbsync/internal/reconcile"
	"github.com/roach88/nbsync/internal/rpc"
	"github.com/roach88/nbsync/internal/session"
)

// CommPath is where live frontends connect. The notebook query parameter
// names the session to attach to.
const CommPath = "/comm"

// SessionServer serves the sessions of a Manager.
type SessionServer struct {
	mgr    *session.Manager
	rpc    *rpc.Server
	logger *slog.Logger
}

// NewSessionServer creates a server over mgr.
func NewSessionServer(mgr *session.Manager, logger *slog.Logger) *SessionServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionServer{mgr: mgr, rpc: rpc.NewServer("session", logger), logger: logger}
	s.rpc.Handle(RequestSync, rpc.Method(s.sync))
	s.rpc.Handle(RequestExecute, rpc.Method(s.execute))
	s.rpc.Handle(RequestExecuteAll, rpc.Method(s.executeAll))
	s.rpc.Handle(RequestRestart, rpc.Method(s.restart))
	s.rpc.Handle(RequestGetStatus, rpc.Method(s.status))
	s.rpc.Handle(RequestFocusCell, rpc.Method(s.focus))
	return s
}

// Handler serves JSON-RPC on "/" and the control channel on CommPath.
func (s *SessionServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.rpc)
	mux.HandleFunc(CommPath, s.serveComm)
	return mux
}

func (s *SessionServer) session(name string) (*session.Session, error) {
	sess, ok := s.mgr.Get(name)
	if !ok {
		open := s.mgr.Paths()
		if len(open) == 0 {
			return nil, rpc.Errorf(rpc.CodeServerError, "no session for %q: none open", name)
		}
		return nil, rpc.Errorf(rpc.CodeServerError, "no session for %q: open are %s", name, strings.Join(open, ", "))
	}
	return sess, nil
}

func (s *SessionServer) sync(ctx context.Context, req SyncRequest) (SyncReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return SyncReply{}, err
	}
	return syncContents(ctx, sess, req.Contents)
}

// syncContents parses a percent script and syncs it. A missing ack is
// reported as an incomplete reply, not as an error.
func syncContents(ctx context.Context, sess *session.Session, contents string) (SyncReply, error) {
	res, err := sess.Sync(ctx, percent.Parse(contents))
	reply := SyncReply{
		Ops:      reconcile.Summarize(res.Ops),
		Commands: len(res.Commands),
		Complete: res.Complete,
		RunID:    res.RunID,
	}
	if session.IsApplyTimeout(err) {
		reply.Warning = err.Error()
		return reply, nil
	}
	return reply, err
}

func (s *SessionServer) execute(ctx context.Context, req ExecuteRequest) (StatusReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return StatusReply{}, err
	}
	if req.Contents != "" {
		if _, err := syncContents(ctx, sess, req.Contents); err != nil {
			return StatusReply{}, err
		}
	}
	if req.CellIndex < 0 {
		return StatusReply{}, rpc.Errorf(rpc.CodeInvalidParams, "cell_index %d: no cell at that line", req.CellIndex)
	}
	if err := sess.Execute(ctx, req.CellIndex); err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Status: sess.Status()}, nil
}

func (s *SessionServer) executeAll(ctx context.Context, req ExecuteAllRequest) (StatusReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return StatusReply{}, err
	}
	if req.Contents != "" {
		if _, err := syncContents(ctx, sess, req.Contents); err != nil {
			return StatusReply{}, err
		}
	}
	if err := sess.ExecuteAll(ctx); err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Status: sess.Status()}, nil
}

func (s *SessionServer) restart(ctx context.Context, req BaseRequest) (StatusReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return StatusReply{}, err
	}
	if err := sess.Restart(ctx); err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Status: sess.Status()}, nil
}

func (s *SessionServer) status(_ context.Context, req BaseRequest) (StatusReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Status: sess.Status()}, nil
}

func (s *SessionServer) focus(ctx context.Context, req FocusCellRequest) (StatusReply, error) {
	sess, err := s.session(req.FileName)
	if err != nil {
		return StatusReply{}, err
	}
	if err := sess.Focus(ctx, req.CellIndex); err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Status: sess.Status()}, nil
}

// serveComm attaches a websocket frontend to a session until it disconnects.
func (s *SessionServer) serveComm(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("notebook")
	sess, ok := s.mgr.Get(name)
	if !ok {
		http.Error(w, "unknown notebook", http.StatusNotFound)
		return
	}

	conn, err := comm.Accept(w, r, s.logger.With("path", name))
	if err != nil {
		s.logger.Warn("control channel upgrade failed", "path", name, "error", err)
		return
	}
	restore := sess.Attach(conn)
	go func() {
		<-conn.Done()
		restore()
	}()
}
