package registry

import (
	"errors"
	"fmt"
	"strings"
)

// LookupErrorCode categorizes lookup failures.
type LookupErrorCode string

const (
	// ErrCodeNotFound indicates no registered path shares a tail with the request.
	ErrCodeNotFound LookupErrorCode = "NOT_FOUND"

	// ErrCodeAmbiguous indicates several registered paths tie for the best score.
	ErrCodeAmbiguous LookupErrorCode = "AMBIGUOUS_TARGET"
)

// NotFoundError is returned when the table is empty or every score is zero.
type NotFoundError struct {
	Code LookupErrorCode
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no live session for %s", e.Code, e.Path)
}

// AmbiguousTargetError is returned when more than one registered path
// attains the maximum score.
type AmbiguousTargetError struct {
	Code       LookupErrorCode
	Path       string
	Score      int
	Candidates []string
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("%s: %s matches %d trailing components of each of [%s]",
		e.Code, e.Path, e.Score, strings.Join(e.Candidates, ", "))
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguous reports whether err wraps an AmbiguousTargetError.
func IsAmbiguous(err error) bool {
	var ae *AmbiguousTargetError
	return errors.As(err, &ae)
}
