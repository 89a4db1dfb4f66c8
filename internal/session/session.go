package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/nbsync/internal/comm"
	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

// DefaultAckTimeout bounds the wait for sync_complete.
const DefaultAckTimeout = 5 * time.Second

// Recorder persists the outcome of each sync. journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run journal.Run) (string, error)
}

// Config holds the tunables shared by every session of a Manager.
type Config struct {
	// Matcher annotates opcodes with output carry-overs. Nil means reconcile.DefaultMatcher().
	Matcher *reconcile.Matcher
	// AckTimeout bounds the wait for sync_complete. Zero means DefaultAckTimeout.
	AckTimeout time.Duration
	// Recorder receives one journal.Run per sync. Optional.
	Recorder Recorder
	Logger   *slog.Logger
	// Now is the wall clock used for journal timestamps.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Matcher == nil {
		c.Matcher = reconcile.DefaultMatcher()
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Result describes one sync.
type Result struct {
	Ops      []reconcile.OpAction `json:"ops"`
	Commands []reconcile.Command  `json:"commands"`
	// Complete is false when the live side did not acknowledge in time.
	Complete bool   `json:"complete"`
	RunID    string `json:"run_id,omitempty"`
}

// Status is a point-in-time view of a session.
type Status struct {
	Path     string       `json:"notebook_path"`
	Attached bool         `json:"attached"`
	Cells    int          `json:"cells"`
	Syncs    int          `json:"syncs"`
	LastRun  *journal.Run `json:"last_run,omitempty"`
	// Live is the newest status frame from a remote live side.
	Live *comm.StatusPayload `json:"live,omitempty"`
}

// Session serializes every request against one live document.
type Session struct {
	path   string
	cfg    Config
	logger *slog.Logger

	// opMu is held for the whole of every pipeline run.
	opMu sync.Mutex
	// seq numbers finish_sync frames. Guarded by opMu.
	seq uint64

	mu      sync.Mutex
	ch      Channel
	syncs   int
	lastRun *journal.Run
}

// New creates a session for path. ch may be nil until a live side attaches.
func New(path string, ch Channel, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		path:   path,
		cfg:    cfg,
		logger: cfg.Logger.With("path", path),
		ch:     ch,
	}
}

// Path returns the notebook path the session serves.
func (s *Session) Path() string {
	return s.path
}

// Attach makes ch the live side. The returned function restores the
// previous channel, unless another Attach has happened since.
func (s *Session) Attach(ch Channel) (restore func()) {
	s.mu.Lock()
	prev := s.ch
	s.ch = ch
	s.mu.Unlock()
	s.logger.Info("live document attached")

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ch == ch {
			s.ch = prev
			s.logger.Info("live document detached")
		}
	}
}

func (s *Session) channel() (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return nil, ErrDetached
	}
	return s.ch, nil
}

// Sync reconciles the live document against updated.
//
// The returned Result is valid whenever commands were sent, including when
// err is an ApplyTimeoutError.
func (s *Session) Sync(ctx context.Context, updated notebook.Notebook) (Result, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	started := s.cfg.Now()
	res, err := s.sync(ctx, updated)

	run := journal.Run{
		NotebookPath: s.path,
		StartedAt:    started,
		FinishedAt:   s.cfg.Now(),
		Status:       journal.StatusComplete,
		Ops:          reconcile.Summarize(res.Ops),
		Commands:     len(res.Commands),
	}
	switch {
	case IsApplyTimeout(err):
		run.Status = journal.StatusTimeout
		run.Error = err.Error()
	case err != nil:
		run.Status = journal.StatusFailed
		run.Error = err.Error()
	}
	res.RunID = s.record(ctx, &run)
	return res, err
}

func (s *Session) sync(ctx context.Context, updated notebook.Notebook) (Result, error) {
	ch, err := s.channel()
	if err != nil {
		return Result{}, err
	}

	s.seq++
	seq := s.seq

	if err := s.send(ctx, ch, comm.CmdStartSync, nil); err != nil {
		return Result{}, err
	}
	current, err := ch.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read live document: %w", err)
	}

	ops := s.cfg.Matcher.Recover(reconcile.Align(current, updated), current, updated)
	res := Result{Ops: ops}
	err = reconcile.Apply(ops, current, updated, func(c reconcile.Command) error {
		msg, err := comm.FromCommand(c)
		if err != nil {
			return err
		}
		if err := ch.Send(ctx, msg); err != nil {
			return err
		}
		res.Commands = append(res.Commands, c)
		return nil
	})
	if err != nil {
		if reconcile.IsUnsupportedOpcode(err) {
			s.logger.Error("alignment produced an unsupported opcode", "error", err)
		}
		return res, fmt.Errorf("apply: %w", err)
	}

	if err := s.send(ctx, ch, comm.CmdFinishSync, comm.SyncPayload{Seq: seq}); err != nil {
		return res, err
	}

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case got := <-ch.Acks():
			if got != seq {
				// Left over from an earlier sync that timed out.
				s.logger.Debug("discarding stale ack", "seq", got, "want", seq)
				continue
			}
			res.Complete = true
			s.logger.Debug("sync complete", "ops", len(ops), "commands", len(res.Commands))
			return res, nil
		case <-timer.C:
			s.logger.Warn("live document did not acknowledge sync", "timeout", s.cfg.AckTimeout, "commands", len(res.Commands))
			return res, &ApplyTimeoutError{Path: s.path, Timeout: s.cfg.AckTimeout, Commands: len(res.Commands)}
		}
	}
}

func (s *Session) record(ctx context.Context, run *journal.Run) string {
	s.mu.Lock()
	s.syncs++
	s.mu.Unlock()

	if s.cfg.Recorder != nil {
		id, err := s.cfg.Recorder.Record(ctx, *run)
		if err != nil {
			s.logger.Warn("failed to journal sync", "error", err)
		} else {
			run.ID = id
		}
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()
	return run.ID
}

// Execute runs the cell at index on the live side.
func (s *Session) Execute(ctx context.Context, index int) error {
	return s.forward(ctx, comm.CmdExecute, comm.ExecutePayload{CellIndex: index})
}

// ExecuteAll runs every code cell on the live side.
func (s *Session) ExecuteAll(ctx context.Context) error {
	return s.forward(ctx, comm.CmdExecuteAll, nil)
}

// Restart restarts the live side's kernel.
func (s *Session) Restart(ctx context.Context) error {
	return s.forward(ctx, comm.CmdRestartKernel, nil)
}

// Focus asks the live side to scroll to the cell at index.
func (s *Session) Focus(ctx context.Context, index int) error {
	return s.forward(ctx, comm.CmdFocusCell, comm.ExecutePayload{CellIndex: index})
}

func (s *Session) forward(ctx context.Context, command string, payload any) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ch, err := s.channel()
	if err != nil {
		return err
	}
	return s.send(ctx, ch, command, payload)
}

func (s *Session) send(ctx context.Context, ch Channel, command string, payload any) error {
	msg, err := comm.NewMessage(command, payload)
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// Status reports the session's state. Cells counts an in-process live
// document and is zero for a remote one. Live is set only for a remote one.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{Path: s.path, Attached: s.ch != nil, Syncs: s.syncs}
	if s.lastRun != nil {
		run := *s.lastRun
		st.LastRun = &run
	}
	ch := s.ch
	s.mu.Unlock()

	switch live := ch.(type) {
	case *LocalChannel:
		st.Cells = live.Document().Len()
	case interface {
		LastStatus() (comm.StatusPayload, bool)
	}:
		if p, ok := live.LastStatus(); ok {
			st.Live = &p
		}
	}
	return st
}
