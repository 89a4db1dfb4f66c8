// Package ipynb reads and writes nbformat 4 notebook files and creates
// new notebook pairs.
//
// Only what nbsync needs survives a round trip: cell kind, source, id, the
// plain-text form of the first output and the execution count. Metadata is
// rewritten.
package ipynb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/nbsync/internal/notebook"
)

type file struct {
	Cells         []cell         `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// Code cells always carry execution_count (possibly null) and outputs;
// other kinds carry neither.
type cell struct {
	CellType       string          `json:"cell_type"`
	ExecutionCount json.RawMessage `json:"execution_count,omitempty"`
	ID             string          `json:"id,omitempty"`
	Metadata       map[string]any  `json:"metadata"`
	Outputs        *[]output       `json:"outputs,omitempty"`
	Source         multiline       `json:"source"`
}

type output struct {
	OutputType     string               `json:"output_type"`
	Name           string               `json:"name,omitempty"`
	Text           multiline            `json:"text,omitempty"`
	Data           map[string]multiline `json:"data,omitempty"`
	ExecutionCount *int                 `json:"execution_count,omitempty"`
	Metadata       json.RawMessage      `json:"metadata,omitempty"`
	EName          string               `json:"ename,omitempty"`
	EValue         string               `json:"evalue,omitempty"`
}

// multiline is nbformat's "string or list of strings".
type multiline []string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = notebook.SplitSource(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*m = lines
	return nil
}

func (m multiline) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(m))
}

// Decode parses notebook JSON.
func Decode(data []byte) (notebook.Notebook, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return notebook.Notebook{}, fmt.Errorf("decode notebook: %w", err)
	}
	if f.NBFormat != 0 && f.NBFormat != 4 {
		return notebook.Notebook{}, fmt.Errorf("decode notebook: unsupported nbformat %d", f.NBFormat)
	}

	cells := make([]notebook.Cell, len(f.Cells))
	for i, c := range f.Cells {
		if c.CellType == "" {
			return notebook.Notebook{}, fmt.Errorf("decode notebook: cell %d has no cell_type", i)
		}
		out, err := firstOutput(c)
		if err != nil {
			return notebook.Notebook{}, fmt.Errorf("decode notebook: cell %d: %w", i, err)
		}
		cells[i] = notebook.Cell{
			Kind:   c.CellType,
			Source: []string(c.Source),
			ID:     c.ID,
			Output: out,
		}
	}
	return notebook.New(cells...), nil
}

func firstOutput(c cell) (*notebook.Output, error) {
	if c.Outputs == nil || len(*c.Outputs) == 0 {
		return nil, nil
	}
	o := (*c.Outputs)[0]
	out := &notebook.Output{}
	if len(c.ExecutionCount) > 0 && string(c.ExecutionCount) != "null" {
		if err := json.Unmarshal(c.ExecutionCount, &out.ExecutionCount); err != nil {
			return nil, fmt.Errorf("execution_count: %w", err)
		}
	}
	switch o.OutputType {
	case "stream":
		out.Text = strings.Join(o.Text, "")
	case "error":
		out.Text = o.EName + ": " + o.EValue
	default:
		out.Text = strings.Join(o.Data["text/plain"], "")
	}
	return out, nil
}

// Encode renders nb as nbformat 4.5 JSON with Jupyter's one-space indent.
func Encode(nb notebook.Notebook) ([]byte, error) {
	f := file{
		Cells:         make([]cell, len(nb.Cells)),
		Metadata:      map[string]any{},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
	for i, c := range nb.Cells {
		out := cell{
			CellType: c.Kind,
			ID:       c.ID,
			Metadata: map[string]any{},
			Source:   multiline(c.Source),
		}
		if c.Kind == notebook.KindCode {
			outputs := []output{}
			out.ExecutionCount = json.RawMessage("null")
			if c.Output != nil {
				count := c.Output.ExecutionCount
				out.ExecutionCount = json.RawMessage(strconv.Itoa(count))
				outputs = append(outputs, output{
					OutputType:     "execute_result",
					Data:           map[string]multiline{"text/plain": notebook.SplitSource(c.Output.Text)},
					ExecutionCount: &count,
					Metadata:       json.RawMessage("{}"),
				})
			}
			out.Outputs = &outputs
		}
		f.Cells[i] = out
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", " ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	return buf.Bytes(), nil
}

// Read loads a notebook file.
func Read(path string) (notebook.Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return notebook.Notebook{}, err
	}
	nb, err := Decode(data)
	if err != nil {
		return notebook.Notebook{}, fmt.Errorf("%s: %w", path, err)
	}
	return nb, nil
}

// Write stores nb at path.
func Write(path string, nb notebook.Notebook) error {
	data, err := Encode(nb)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ErrExists is returned by NewPair when a target exists and force is false.
var ErrExists = errors.New("file already exists")
