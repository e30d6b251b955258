// File: perr/errors.go
// Package perr defines the structured error vocabulary for the resource
// partitioner.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The four error kinds mirror the meanings (not the exception types) used
// by the original HPX resource_partitioner: invalid_status, bad_parameter,
// invalid_argument and a command-line error for an unrecognized scheduler
// name. Every package in this module returns one of the four sentinels
// below, optionally annotated with WithContext, instead of ad-hoc
// fmt.Errorf strings.
package perr

import "fmt"

// Code classifies the meaning of a partitioner error, independent of the
// particular message attached to it.
type Code int

const (
	// CodeInvalidStatus marks a violation of a structural precondition:
	// a second partitioner instance, an empty pool surviving
	// configuration, or a PU with zero thread occupancy.
	CodeInvalidStatus Code = iota
	// CodeBadParameter marks a request that is individually well-formed
	// but not permitted under the partitioner's current mode or state:
	// non-exclusive resources without dynamic pools, oversubscription
	// without the flag, exceeding the configured OS thread budget, or
	// shrink/expand with no non-exclusive PUs.
	CodeBadParameter
	// CodeInvalidArgument marks a malformed request: an empty or
	// duplicate pool name, an unknown pool, an out-of-range pool index,
	// or querying the scheduler of a pool still Unspecified.
	CodeInvalidArgument
	// CodeCommandLineError marks an unrecognized scheduler name supplied
	// through settings.
	CodeCommandLineError
)

func (c Code) String() string {
	switch c {
	case CodeInvalidStatus:
		return "invalid_status"
	case CodeBadParameter:
		return "bad_parameter"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeCommandLineError:
		return "command_line_error"
	default:
		return "unknown"
	}
}

// Error is a structured error carrying a Code and free-form context, in
// the same shape callers can match on programmatically (via CodeOf) or
// print for a human (via Error()).
type Error struct {
	Code    Code
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// New creates a structured error of the given kind.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Context: make(map[string]any)}
}

// WithContext returns a copy of e with key/value added to its context.
// The receiver is not mutated, so sentinel errors can be safely extended
// at each call site without one call site's context leaking into another's.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

// CodeOf extracts the Code carried by err, if any. Returns false if err
// is nil or not a *Error.
func CodeOf(err error) (Code, bool) {
	pe, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return pe.Code, true
}

// Sentinels for the four error kinds. Always wrap with WithContext at the
// call site rather than constructing bare fmt.Errorf strings.
var (
	ErrInvalidStatus    = New(CodeInvalidStatus, "invalid status")
	ErrBadParameter     = New(CodeBadParameter, "bad parameter")
	ErrInvalidArgument  = New(CodeInvalidArgument, "invalid argument")
	ErrCommandLineError = New(CodeCommandLineError, "command line error")
)
