package session

import (
	"errors"
	"fmt"
	"time"
)

// ApplyTimeoutError reports that the live side did not acknowledge a sync in time.
// The commands were sent; the live document may reflect any prefix of them.
type ApplyTimeoutError struct {
	Path     string
	Timeout  time.Duration
	Commands int
}

func (e *ApplyTimeoutError) Error() string {
	return fmt.Sprintf("sync of %s not acknowledged within %s (%d commands sent)", e.Path, e.Timeout, e.Commands)
}

// IsApplyTimeout reports whether err wraps an ApplyTimeoutError.
func IsApplyTimeout(err error) bool {
	var te *ApplyTimeoutError
	return errors.As(err, &te)
}

// ErrDetached is returned when a session has no live side.
var ErrDetached = errors.New("session has no live document attached")
