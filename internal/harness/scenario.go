package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

// Scenario is one sync to run and check.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Matcher overrides the default output matcher.
	Matcher *MatcherConfig `yaml:"matcher,omitempty"`

	// Current is the live notebook before the sync.
	Current []CellSpec `yaml:"current"`

	// Updated is the edited percent script.
	Updated string `yaml:"updated"`

	Assertions []Assertion `yaml:"assertions"`
}

// MatcherConfig selects the similarity threshold and scorer.
type MatcherConfig struct {
	Threshold *float64 `yaml:"threshold,omitempty"`
	Scorer    string   `yaml:"scorer,omitempty"`
}

// CellSpec describes one live cell. Kind defaults to code.
type CellSpec struct {
	Kind   string  `json:"kind" yaml:"kind,omitempty"`
	Source string  `json:"source" yaml:"source"`
	Output *string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Assertion types.
const (
	AssertOps             = "ops"
	AssertCommandContains = "command_contains"
	AssertCommandCount    = "command_count"
	AssertOutput          = "output"
)

// Assertion checks one property of a sync.
type Assertion struct {
	Type string `yaml:"type"`

	// Ops maps opcode names to expected counts (ops).
	Ops map[string]int `yaml:"ops,omitempty"`

	// Command is a command in its string form (command_contains).
	Command string `yaml:"command,omitempty"`

	// Count is the expected number of commands (command_count).
	Count int `yaml:"count,omitempty"`

	// Cell and Text select a final cell and its expected output (output).
	Cell int     `yaml:"cell,omitempty"`
	Text *string `yaml:"text,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// CurrentNotebook builds the live notebook the scenario starts from.
func (s *Scenario) CurrentNotebook() notebook.Notebook {
	cells := make([]notebook.Cell, len(s.Current))
	for i, c := range s.Current {
		kind := c.Kind
		if kind == "" {
			kind = notebook.KindCode
		}
		cells[i] = notebook.Cell{Kind: kind, Source: notebook.SplitSource(c.Source)}
		if c.Output != nil {
			cells[i].Output = &notebook.Output{Text: *c.Output}
		}
	}
	return notebook.New(cells...)
}

// BuildMatcher returns the scenario's matcher, or the default one.
func (s *Scenario) BuildMatcher() (*reconcile.Matcher, error) {
	if s.Matcher == nil {
		return reconcile.DefaultMatcher(), nil
	}
	scorer, err := reconcile.ScorerByName(s.Matcher.Scorer)
	if err != nil {
		return nil, err
	}
	threshold := reconcile.DefaultThreshold
	if s.Matcher.Threshold != nil {
		threshold = *s.Matcher.Threshold
	}
	return reconcile.NewMatcher(threshold, scorer), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Matcher != nil {
		if _, err := reconcile.ScorerByName(s.Matcher.Scorer); err != nil {
			return fmt.Errorf("matcher: %w", err)
		}
		if t := s.Matcher.Threshold; t != nil && (*t < 0 || *t > 1) {
			return fmt.Errorf("matcher: threshold %v must be within [0,1]", *t)
		}
	}

	for i, c := range s.Current {
		switch c.Kind {
		case "", notebook.KindCode, notebook.KindMarkdown, notebook.KindRaw:
		default:
			return fmt.Errorf("current[%d]: unknown kind %q", i, c.Kind)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOps:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops is required for ops", index)
		}
		for name := range a.Ops {
			var k reconcile.OpKind
			if err := k.UnmarshalText([]byte(name)); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertCommandContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for command_contains", index)
		}
	case AssertCommandCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
	case AssertOutput:
		if a.Cell < 0 {
			return fmt.Errorf("assertions[%d]: cell must be non-negative for output", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
