package notebook

import (
	"fmt"
	"strings"
)

// Cell kinds understood by the percent format and the live document.
const (
	KindCode     = "code"
	KindMarkdown = "markdown"
	KindRaw      = "raw"
)

// SignatureSeparator joins the kind and the source inside a signature.
const SignatureSeparator = "::::"

// Output is the captured result of executing a cell.
type Output struct {
	Text           string `json:"text"`
	ExecutionCount int    `json:"execution_count,omitempty"`
}

// Cell is one addressable block of a notebook.
type Cell struct {
	Index  int      `json:"index"`
	Kind   string   `json:"cell_type"`
	Source []string `json:"source"`
	Output *Output  `json:"output,omitempty"`
	ID     string   `json:"id,omitempty"`
}

// JoinedSource concatenates the source lines. Lines carry their own
// trailing newlines, so no separator is inserted.
func (c Cell) JoinedSource() string {
	return strings.Join(c.Source, "")
}

// Signature is the atomic comparison unit used for alignment.
func (c Cell) Signature() string {
	return c.Kind + SignatureSeparator + c.JoinedSource()
}

// ContentEqual reports whether two cells match on (kind, source).
func (c Cell) ContentEqual(other Cell) bool {
	return c.Signature() == other.Signature()
}

// Notebook is an ordered sequence of cells.
type Notebook struct {
	Cells []Cell `json:"cells"`
}

// New builds a notebook from cells, copying them and rewriting each index
// to its position.
func New(cells ...Cell) Notebook {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		c.Source = append([]string(nil), c.Source...)
		if c.Output != nil {
			o := *c.Output
			c.Output = &o
		}
		c.Index = i
		out[i] = c
	}
	return Notebook{Cells: out}
}

// Len returns the number of cells.
func (n Notebook) Len() int {
	return len(n.Cells)
}

// Signatures returns the per-cell signatures in order.
func (n Notebook) Signatures() []string {
	sigs := make([]string, len(n.Cells))
	for i, c := range n.Cells {
		sigs[i] = c.Signature()
	}
	return sigs
}

// ContentEqual compares two notebooks on (kind, source), index for index.
func (n Notebook) ContentEqual(other Notebook) bool {
	if len(n.Cells) != len(other.Cells) {
		return false
	}
	for i := range n.Cells {
		if !n.Cells[i].ContentEqual(other.Cells[i]) {
			return false
		}
	}
	return true
}

// Validate checks the positional index invariant and that every cell has a kind.
func (n Notebook) Validate() error {
	for i, c := range n.Cells {
		if c.Index != i {
			return fmt.Errorf("cell at position %d has index %d", i, c.Index)
		}
		if c.Kind == "" {
			return fmt.Errorf("cell %d has no kind", i)
		}
	}
	return nil
}

// SplitSource splits text into source lines, keeping the trailing newline on
// every line but the last. Empty text yields no lines.
func SplitSource(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CodeCell is a convenience constructor used by tests and the parser.
func CodeCell(source string) Cell {
	return Cell{Kind: KindCode, Source: SplitSource(source)}
}

// MarkdownCell is a convenience constructor used by tests and the parser.
func MarkdownCell(source string) Cell {
	return Cell{Kind: KindMarkdown, Source: SplitSource(source)}
}
