package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrMarshal is the sentinel wrapped by MarshalError.
	ErrMarshal = errors.New("input cannot cross the module boundary")
	// ErrCallFailed is the sentinel wrapped by CallFailedError.
	ErrCallFailed = errors.New("module call failed")
	// ErrUnknownEntryPoint is the cause of a CallFailedError raised for
	// an entry point the module does not expose.
	ErrUnknownEntryPoint = errors.New("unknown entry point")
)

// MarshalError is returned when the input cannot be represented in the
// module's calling convention, e.g. invalid UTF-8 or a guest allocation
// that does not fit into linear memory.
type MarshalError struct {
	Module     string
	EntryPoint string
	Err        error
}

// Error implements the error interface.
func (e *MarshalError) Error() string {
	return fmt.Sprintf("marshal input for %s.%s: %v", e.Module, e.EntryPoint, e.Err)
}

// Unwrap exposes both ErrMarshal and the underlying cause to errors.Is.
func (e *MarshalError) Unwrap() []error { return []error{ErrMarshal, e.Err} }

// CallFailedError is returned when the module faults while running an
// entry point: a trap, a non-zero exit code, a native error or a result
// that points outside of guest memory.
type CallFailedError struct {
	Module     string
	EntryPoint string
	// ExitCode is set for WASI command modules that exited non-zero.
	ExitCode uint32
	// Stderr holds whatever a WASI module wrote to stderr before failing.
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *CallFailedError) Error() string {
	msg := fmt.Sprintf("call %s.%s: %v", e.Module, e.EntryPoint, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}

	return msg
}

// Unwrap exposes both ErrCallFailed and the underlying cause to errors.Is.
func (e *CallFailedError) Unwrap() []error { return []error{ErrCallFailed, e.Err} }

func marshalError(m *Module, entry string, err error) error {
	return &MarshalError{Module: m.name, EntryPoint: entry, Err: err}
}

func callFailed(m *Module, entry string, err error) *CallFailedError {
	return &CallFailedError{Module: m.name, EntryPoint: entry, Err: err}
}
