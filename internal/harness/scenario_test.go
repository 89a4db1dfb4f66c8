package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/notebook"
	"github.com/roach88/nbsync/internal/reconcile"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/reorder.yaml")
	require.NoError(t, err)

	assert.Equal(t, "reorder", s.Name)
	require.Len(t, s.Current, 3)
	assert.Len(t, s.Assertions, 5)

	nb := s.CurrentNotebook()
	require.NoError(t, nb.Validate())
	assert.Equal(t, notebook.KindCode, nb.Cells[0].Kind)
	require.NotNil(t, nb.Cells[0].Output)
	assert.Equal(t, "1", nb.Cells[0].Output.Text)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nassertions: [{type: command_count}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nassertions: [{type: command_count}]\n",
			want: "description is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\n",
			want: "assertions list is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nexpected: 1\nassertions: [{type: command_count}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "unknown opcode",
			yaml: "name: n\ndescription: d\nassertions: [{type: ops, ops: {move: 1}}]\n",
			want: `unknown opcode kind "move"`,
		},
		{
			name: "empty ops",
			yaml: "name: n\ndescription: d\nassertions: [{type: ops}]\n",
			want: "ops is required",
		},
		{
			name: "command_contains without command",
			yaml: "name: n\ndescription: d\nassertions: [{type: command_contains}]\n",
			want: "command is required",
		},
		{
			name: "negative count",
			yaml: "name: n\ndescription: d\nassertions: [{type: command_count, count: -1}]\n",
			want: "count must be non-negative",
		},
		{
			name: "bad kind",
			yaml: "name: n\ndescription: d\ncurrent: [{kind: sql, source: x}]\nassertions: [{type: command_count}]\n",
			want: `unknown kind "sql"`,
		},
		{
			name: "bad scorer",
			yaml: "name: n\ndescription: d\nmatcher: {scorer: cosine}\nassertions: [{type: command_count}]\n",
			want: "matcher",
		},
		{
			name: "bad threshold",
			yaml: "name: n\ndescription: d\nmatcher: {threshold: 2}\nassertions: [{type: command_count}]\n",
			want: "threshold 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildMatcher(t *testing.T) {
	s := &Scenario{}
	m, err := s.BuildMatcher()
	require.NoError(t, err)
	assert.Equal(t, reconcile.DefaultMatcher(), m)

	threshold := 0.9
	s.Matcher = &MatcherConfig{Threshold: &threshold, Scorer: reconcile.ScorerLevenshtein}
	m, err = s.BuildMatcher()
	require.NoError(t, err)
	assert.Equal(t, 0.9, m.Threshold)
	assert.IsType(t, reconcile.LevenshteinScorer{}, m.Scorer)
}

func TestEveryScenarioHasAGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	for _, file := range files {
		s, err := LoadScenario(file)
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join("testdata/golden", s.Name+".golden"))
		assert.NoErrorf(t, err, "scenario %s", s.Name)
	}
}
