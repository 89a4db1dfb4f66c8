package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RewritesIndices(t *testing.T) {
	nb := New(
		Cell{Index: 7, Kind: KindCode, Source: []string{"x = 1"}},
		Cell{Index: 3, Kind: KindMarkdown, Source: []string{"# title"}},
	)

	require.Equal(t, 2, nb.Len())
	assert.Equal(t, 0, nb.Cells[0].Index)
	assert.Equal(t, 1, nb.Cells[1].Index)
	assert.NoError(t, nb.Validate())
}

func TestNew_CopiesInputs(t *testing.T) {
	source := []string{"x = 1"}
	out := &Output{Text: "1"}
	nb := New(Cell{Kind: KindCode, Source: source, Output: out})

	source[0] = "mutated"
	out.Text = "mutated"

	assert.Equal(t, "x = 1", nb.Cells[0].Source[0])
	assert.Equal(t, "1", nb.Cells[0].Output.Text)
}

func TestSignature_IgnoresOutputAndID(t *testing.T) {
	a := Cell{Kind: KindCode, Source: []string{"x = 1\n", "x"}, Output: &Output{Text: "1"}, ID: "a"}
	b := Cell{Kind: KindCode, Source: []string{"x = 1\nx"}, ID: "b"}

	assert.Equal(t, "code::::x = 1\nx", a.Signature())
	assert.True(t, a.ContentEqual(b))
}

func TestSignature_KindMatters(t *testing.T) {
	a := CodeCell("# hello")
	b := MarkdownCell("# hello")

	assert.False(t, a.ContentEqual(b))
}

func TestNotebook_ContentEqual(t *testing.T) {
	a := New(CodeCell("x"), CodeCell("y"))
	b := New(CodeCell("x"), CodeCell("y"))
	c := New(CodeCell("x"))

	assert.True(t, a.ContentEqual(b))
	assert.False(t, a.ContentEqual(c))
}

func TestValidate(t *testing.T) {
	t.Run("bad index", func(t *testing.T) {
		nb := Notebook{Cells: []Cell{{Index: 1, Kind: KindCode}}}
		assert.Error(t, nb.Validate())
	})
	t.Run("missing kind", func(t *testing.T) {
		nb := Notebook{Cells: []Cell{{Index: 0}}}
		assert.Error(t, nb.Validate())
	})
	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, Notebook{}.Validate())
	})
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a\n"}},
		{"a\nb", []string{"a\n", "b"}},
		{"a\n\nb\n", []string{"a\n", "\n", "b\n"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitSource(tt.in), "input %q", tt.in)
	}
}
