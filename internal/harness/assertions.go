package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nbsync/internal/reconcile"
)

// AssertionError describes a failed assertion with the full command stream
// for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Commands []string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nCommands:\n")
	for i, c := range e.Commands {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
	}
	return buf.String()
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertOps:
		return assertOps(r, a)
	case AssertCommandContains:
		return assertCommandContains(r, a)
	case AssertCommandCount:
		return assertCommandCount(r, a)
	case AssertOutput:
		return assertOutput(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func commandStrings(cmds []reconcile.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

func assertOps(r *Result, a Assertion) error {
	counts := make(map[string]int)
	for _, op := range r.Ops {
		counts[op.Kind.String()]++
	}

	names := make([]string, 0, len(a.Ops))
	for name := range a.Ops {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if counts[name] != a.Ops[name] {
			return &AssertionError{
				Type:     AssertOps,
				Expected: fmt.Sprintf("%d %s opcode(s)", a.Ops[name], name),
				Actual:   fmt.Sprintf("%d in %v", counts[name], r.Ops),
				Commands: commandStrings(r.Commands),
			}
		}
	}
	return nil
}

func assertCommandContains(r *Result, a Assertion) error {
	cmds := commandStrings(r.Commands)
	if slices.Contains(cmds, a.Command) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandContains,
		Expected: a.Command,
		Actual:   "not sent",
		Commands: cmds,
	}
}

func assertCommandCount(r *Result, a Assertion) error {
	if len(r.Commands) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCommandCount,
		Expected: fmt.Sprintf("%d command(s)", a.Count),
		Actual:   fmt.Sprintf("%d command(s)", len(r.Commands)),
		Commands: commandStrings(r.Commands),
	}
}

func assertOutput(r *Result, a Assertion) error {
	fail := func(actual string) error {
		expected := "no output"
		if a.Text != nil {
			expected = fmt.Sprintf("output %q", *a.Text)
		}
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("cell %d has %s", a.Cell, expected),
			Actual:   actual,
			Commands: commandStrings(r.Commands),
		}
	}

	if a.Cell >= len(r.Final) {
		return fail(fmt.Sprintf("only %d cell(s)", len(r.Final)))
	}
	got := r.Final[a.Cell].Output
	switch {
	case got == nil && a.Text == nil:
		return nil
	case got == nil:
		return fail("no output")
	case a.Text == nil:
		return fail(fmt.Sprintf("output %q", *got))
	case *got != *a.Text:
		return fail(fmt.Sprintf("output %q", *got))
	}
	return nil
}
