package harness

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nbsync/internal/journal"
)

// Snapshot is the golden form of a scenario outcome. Opcodes and commands
// use their string forms so that diffs read like the wire protocol.
type Snapshot struct {
	Scenario string      `json:"scenario"`
	Ops      []string    `json:"ops"`
	Commands []string    `json:"commands"`
	Final    []CellSpec  `json:"final"`
	Run      RunSnapshot `json:"run"`
}

// RunSnapshot is the journaled part of a snapshot.
type RunSnapshot struct {
	ID        string         `json:"id"`
	Status    journal.Status `json:"status"`
	StartedAt string         `json:"started_at"`
	Commands  int            `json:"commands"`
}

// NewSnapshot builds the snapshot for a result.
func NewSnapshot(name string, r *Result) Snapshot {
	snap := Snapshot{
		Scenario: name,
		Ops:      make([]string, len(r.Ops)),
		Commands: commandStrings(r.Commands),
		Final:    r.Final,
		Run: RunSnapshot{
			ID:        r.Run.ID,
			Status:    r.Run.Status,
			StartedAt: r.Run.StartedAt.UTC().Format(time.RFC3339),
			Commands:  r.Run.Commands,
		},
	}
	for i, op := range r.Ops {
		snap.Ops[i] = op.String()
	}
	if snap.Final == nil {
		snap.Final = []CellSpec{}
	}
	return snap
}

// MarshalSnapshot renders a snapshot as indented JSON with a trailing newline.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(NewSnapshot(scenario.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
