// Package percent reads and writes the "percent" script format used for the
// externally edited side of a notebook pair.
//
// A cell starts at every line matching `^#\s*%%`. The rest of the marker
// line may carry a title and a kind tag: [markdown] or [md] for markdown,
// [raw] for raw, anything else is code. Markdown and raw bodies are
// commented with "# ". A leading "# ---" ... "# ---" metadata header is
// skipped, and text before the first marker forms a code cell only if it is
// not blank.
package percent

import (
	"regexp"
	"strings"

	"github.com/roach88/nbsync/internal/notebook"
)

var markerRE = regexp.MustCompile(`^#\s*%%(.*)$`)

const headerFence = "# ---"

// span is a parsed cell together with the lines it occupies.
type span struct {
	cell  notebook.Cell
	first int // marker line, or first preamble line
}

// Parse converts percent-format text into a notebook.
func Parse(text string) notebook.Notebook {
	spans := parse(splitLines(text))
	cells := make([]notebook.Cell, len(spans))
	for i, s := range spans {
		cells[i] = s.cell
	}
	return notebook.New(cells...)
}

// CellIndexAt returns the index, in Parse's output, of the cell containing
// the 0-based line number, or -1 when the line precedes every cell.
func CellIndexAt(text string, line int) int {
	idx := -1
	for i, s := range parse(splitLines(text)) {
		if s.first > line {
			break
		}
		idx = i
	}
	return idx
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func parse(lines []string) []span {
	start := skipHeader(lines)

	var (
		spans []span
		kind  = notebook.KindCode
		first = start
		body  []string
		open  = false
	)
	flush := func() {
		content := trimBlank(body)
		if !open && len(content) == 0 {
			// Blank preamble.
			return
		}
		if kind != notebook.KindCode {
			content = uncomment(content)
		}
		spans = append(spans, span{
			cell:  notebook.Cell{Kind: kind, Source: notebook.SplitSource(strings.Join(content, "\n"))},
			first: first,
		})
	}

	for i := start; i < len(lines); i++ {
		m := markerRE.FindStringSubmatch(lines[i])
		if m == nil {
			body = append(body, lines[i])
			continue
		}
		flush()
		kind, first, body, open = markerKind(m[1]), i, nil, true
	}
	flush()
	return spans
}

// skipHeader returns the first line after a leading metadata block.
func skipHeader(lines []string) int {
	if len(lines) == 0 || strings.TrimRight(lines[0], " ") != headerFence {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " ") == headerFence {
			return i + 1
		}
		if !strings.HasPrefix(lines[i], "#") {
			break
		}
	}
	// Unterminated; treat it as ordinary text.
	return 0
}

func markerKind(rest string) string {
	switch {
	case strings.Contains(rest, "[markdown]"), strings.Contains(rest, "[md]"):
		return notebook.KindMarkdown
	case strings.Contains(rest, "[raw]"):
		return notebook.KindRaw
	default:
		return notebook.KindCode
	}
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func uncomment(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "# "):
			out[i] = l[2:]
		case l == "#":
			out[i] = ""
		default:
			out[i] = l
		}
	}
	return out
}

// Render writes nb in percent format. Parse(Render(nb)) reproduces nb's
// kinds and sources for sources without leading or trailing blank lines.
func Render(nb notebook.Notebook) string {
	var b strings.Builder
	for i, c := range nb.Cells {
		if i > 0 {
			b.WriteString("\n")
		}
		switch c.Kind {
		case notebook.KindMarkdown:
			b.WriteString("# %% [markdown]\n")
		case notebook.KindRaw:
			b.WriteString("# %% [raw]\n")
		default:
			b.WriteString("# %%\n")
		}
		src := c.JoinedSource()
		if src == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(src, "\n"), "\n") {
			if c.Kind != notebook.KindCode {
				if line == "" {
					line = "#"
				} else {
					line = "# " + line
				}
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
