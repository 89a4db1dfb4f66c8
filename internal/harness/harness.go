package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/livedoc"
	"github.com/roach88/nbsync/internal/percent"
	"github.com/roach88/nbsync/internal/reconcile"
	"github.com/roach88/nbsync/internal/session"
	"github.com/roach88/nbsync/internal/testutil"
)

// Epoch is the start time of every scenario clock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario.
type Result struct {
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	Ops      []reconcile.OpAction `json:"ops"`
	Commands []reconcile.Command  `json:"commands"`
	Final    []CellSpec           `json:"final"`
	Run      journal.Run          `json:"run"`
}

func (r *Result) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.Pass = false
}

// Run syncs the scenario's updated script into a live copy of its current
// notebook through a session, then evaluates the assertions.
//
// Failed assertions are reported in the Result; the error is reserved for
// scenarios that cannot run at all.
func Run(s *Scenario) (*Result, error) {
	matcher, err := s.BuildMatcher()
	if err != nil {
		return nil, err
	}

	store, err := journal.Open(":memory:", journal.WithIDGenerator(testutil.NewSequentialIDs("run")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer store.Close()

	clock := testutil.NewStepClock(Epoch, time.Millisecond)
	doc := livedoc.New(s.CurrentNotebook())
	sess := session.New(s.Name, session.NewLocalChannel(doc, nil), session.Config{
		Matcher:  matcher,
		Recorder: store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      clock.Now,
	})

	ctx := context.Background()
	res, err := sess.Sync(ctx, percent.Parse(s.Updated))
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", s.Name, err)
	}

	run, err := store.Get(ctx, res.RunID)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	result := &Result{Pass: true, Ops: res.Ops, Commands: res.Commands, Run: run}
	for _, c := range doc.Snapshot().Cells {
		spec := CellSpec{Kind: c.Kind, Source: c.JoinedSource()}
		if c.Output != nil {
			text := c.Output.Text
			spec.Output = &text
		}
		result.Final = append(result.Final, spec)
	}

	for _, a := range s.Assertions {
		if err := evaluate(result, a); err != nil {
			result.addError(err)
		}
	}
	return result, nil
}
