package reconcile

import (
	"errors"
	"fmt"
)

// UnsupportedOpcodeError means an opcode of unknown kind reached the applier.
// Alignment never produces one, so seeing it is a programmer error.
type UnsupportedOpcodeError struct {
	Op OpAction
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported opcode %s", e.Op)
}

// InvalidOpcodeError reports an opcode whose ranges violate its kind's shape.
type InvalidOpcodeError struct {
	Op     OpAction
	Reason string
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode %s: %s", e.Op, e.Reason)
}

// IsUnsupportedOpcode reports whether err wraps an UnsupportedOpcodeError.
func IsUnsupportedOpcode(err error) bool {
	var ue *UnsupportedOpcodeError
	return errors.As(err, &ue)
}
