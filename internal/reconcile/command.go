package reconcile

import (
	"fmt"
	"strings"

	"github.com/roach88/nbsync/internal/notebook"
)

// CommandOp names a primitive operation the live document supports.
type CommandOp string

const (
	CmdInsert       CommandOp = "insert"
	CmdDelete       CommandOp = "delete"
	CmdReplace      CommandOp = "replace"
	CmdAttachOutput CommandOp = "attach_output"
)

// Command is one primitive single-cell edit addressed by physical index.
//
//   - insert: a new cell of Kind/Source at Index, shifting later cells right
//   - delete: remove every cell in Indices (indices of the document before the delete)
//   - replace: overwrite Kind/Source of the cell at Index
//   - attach_output: set Output on the cell at Index
type Command struct {
	Op      CommandOp        `json:"op"`
	Index   int              `json:"index"`
	Indices []int            `json:"indices,omitempty"`
	Kind    string           `json:"cell_type,omitempty"`
	Source  string           `json:"source,omitempty"`
	Output  *notebook.Output `json:"output,omitempty"`
}

// String renders the command on one line for logs and golden files.
func (c Command) String() string {
	switch c.Op {
	case CmdDelete:
		parts := make([]string, len(c.Indices))
		for i, idx := range c.Indices {
			parts[i] = fmt.Sprint(idx)
		}
		return fmt.Sprintf("delete [%s]", strings.Join(parts, " "))
	case CmdAttachOutput:
		text := ""
		if c.Output != nil {
			text = c.Output.Text
		}
		return fmt.Sprintf("attach_output %d %q", c.Index, text)
	default:
		return fmt.Sprintf("%s %d %s %q", c.Op, c.Index, c.Kind, c.Source)
	}
}
