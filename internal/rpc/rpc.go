// Package rpc serves and calls JSON-RPC 2.0 methods over websocket
// connections, framed by github.com/sourcegraph/jsonrpc2.
//
// Handlers are plain functions from decoded params to a result, adapted
// with Method. Each Client.Call dials a fresh connection, so http URLs are
// accepted and rewritten to ws.
package rpc

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

// Standard error codes.
const (
	CodeParseError     int64 = jsonrpc2.CodeParseError
	CodeInvalidRequest int64 = jsonrpc2.CodeInvalidRequest
	CodeMethodNotFound int64 = jsonrpc2.CodeMethodNotFound
	CodeInvalidParams  int64 = jsonrpc2.CodeInvalidParams
	CodeInternalError  int64 = jsonrpc2.CodeInternalError
	// CodeServerError is returned for errors raised by a handler.
	CodeServerError int64 = -32000
)

// Error is a JSON-RPC error object. Handlers return one to control the
// code sent to the caller; Call returns one for every error response.
type Error = jsonrpc2.Error

// Errorf builds an Error with a formatted message.
func Errorf(code int64, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsMethodNotFound reports whether err is an Error with CodeMethodNotFound.
func IsMethodNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == CodeMethodNotFound
}

func asError(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Code: CodeServerError, Message: err.Error()}
}
