package reconcile

import (
	"fmt"
)

// OpKind is the closed set of opcode variants.
type OpKind int

const (
	// OpEqual maps a current range onto an identical updated range.
	OpEqual OpKind = iota + 1
	// OpInsert adds the updated range at an empty current position.
	OpInsert
	// OpDelete removes the current range.
	OpDelete
	// OpReplace rewrites a non-empty current range with a non-empty updated range.
	OpReplace
	// OpCopyOutput links one updated cell to the current cell whose output it inherits.
	// It never changes structure.
	OpCopyOutput
)

var opKindNames = map[OpKind]string{
	OpEqual:      "equal",
	OpInsert:     "insert",
	OpDelete:     "delete",
	OpReplace:    "replace",
	OpCopyOutput: "copy_output",
}

// String returns the lowercase opcode name.
func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("opkind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k OpKind) MarshalText() ([]byte, error) {
	if _, ok := opKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown opcode kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *OpKind) UnmarshalText(text []byte) error {
	for kind, name := range opKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown opcode kind %q", string(text))
}

// Range is a half-open interval [Start, End) of cell indices.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns End-Start.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers no indices.
func (r Range) Empty() bool {
	return r.Start == r.End
}

func (r Range) valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// OpAction is one opcode: how a contiguous current range maps to a
// contiguous updated range. Build values with the New* constructors, which
// enforce the per-kind shape rules.
type OpAction struct {
	Kind    OpKind `json:"op"`
	Current Range  `json:"current"`
	Updated Range  `json:"updated"`
}

func (a OpAction) String() string {
	return fmt.Sprintf("%s(%d,%d,%d,%d)", a.Kind, a.Current.Start, a.Current.End, a.Updated.Start, a.Updated.End)
}

// NewOpAction validates the range shape for kind and returns the opcode.
func NewOpAction(kind OpKind, current, updated Range) (OpAction, error) {
	a := OpAction{Kind: kind, Current: current, Updated: updated}
	if err := a.Validate(); err != nil {
		return OpAction{}, err
	}
	return a, nil
}

// Validate checks the shape rules for the opcode's kind.
func (a OpAction) Validate() error {
	if !a.Current.valid() || !a.Updated.valid() {
		return &InvalidOpcodeError{Op: a, Reason: "range start must be non-negative and not exceed end"}
	}
	switch a.Kind {
	case OpEqual:
		if a.Current.Len() != a.Updated.Len() {
			return &InvalidOpcodeError{Op: a, Reason: "equal ranges must have the same length"}
		}
	case OpInsert:
		if !a.Current.Empty() || a.Updated.Empty() {
			return &InvalidOpcodeError{Op: a, Reason: "insert needs an empty current range and a non-empty updated range"}
		}
	case OpDelete:
		if a.Current.Empty() || !a.Updated.Empty() {
			return &InvalidOpcodeError{Op: a, Reason: "delete needs a non-empty current range and an empty updated range"}
		}
	case OpReplace:
		if a.Current.Empty() || a.Updated.Empty() {
			return &InvalidOpcodeError{Op: a, Reason: "replace needs non-empty ranges on both sides"}
		}
	case OpCopyOutput:
		if a.Current.Len() != 1 || a.Updated.Len() != 1 {
			return &InvalidOpcodeError{Op: a, Reason: "copy_output ranges must be singletons"}
		}
	default:
		return &UnsupportedOpcodeError{Op: a}
	}
	return nil
}

// mustOp builds an opcode whose shape is guaranteed by the caller.
// A failure here means the aligner produced something impossible.
func mustOp(kind OpKind, current, updated Range) OpAction {
	a, err := NewOpAction(kind, current, updated)
	if err != nil {
		panic(err)
	}
	return a
}

// Summary counts opcodes by kind.
type Summary struct {
	Equal      int `json:"equal"`
	Insert     int `json:"insert"`
	Delete     int `json:"delete"`
	Replace    int `json:"replace"`
	CopyOutput int `json:"copy_output"`
}

// Summarize counts the opcodes in ops by kind.
func Summarize(ops []OpAction) Summary {
	var s Summary
	for _, op := range ops {
		switch op.Kind {
		case OpEqual:
			s.Equal++
		case OpInsert:
			s.Insert++
		case OpDelete:
			s.Delete++
		case OpReplace:
			s.Replace++
		case OpCopyOutput:
			s.CopyOutput++
		}
	}
	return s
}
