package rpc

import (
	"errors"
	"fmt"
	"strconv"
)

// StatusCode is the result of a dispatch. Handler statuses are passed
// through unchanged, so any value outside the framework set is legal.
type StatusCode int

const (
	StatusOK                    StatusCode = 0
	StatusServiceNotFound       StatusCode = -1
	StatusInvalidArgumentLength StatusCode = -2
	StatusInvalidArgumentCount  StatusCode = -3
	StatusInvalidMessageLength  StatusCode = -4
	StatusInitialization        StatusCode = -5
	StatusArgumentNotFound      StatusCode = -6
	StatusNullPointer           StatusCode = -7
	StatusRegistrationCollision StatusCode = -8
	StatusMalformedMessage      StatusCode = -9
	StatusBufferOverflow        StatusCode = -10
)

var (
	ErrServiceNotFound       = errors.New("rpc: service not found")
	ErrInvalidArgumentLength = errors.New("rpc: invalid argument length")
	ErrInvalidArgumentCount  = errors.New("rpc: invalid argument count")
	ErrInvalidMessageLength  = errors.New("rpc: invalid message length")
	ErrInitialization        = errors.New("rpc: initialization error")
	ErrArgumentNotFound      = errors.New("rpc: argument not found")
	ErrNullPointer           = errors.New("rpc: null pointer")
	ErrRegistrationCollision = errors.New("rpc: registration collision")
	ErrMalformedMessage      = errors.New("rpc: malformed message")
	ErrBufferOverflow        = errors.New("rpc: buffer overflow")
)

var statusErrors = [...]struct {
	code StatusCode
	err  error
	name string
}{
	{StatusServiceNotFound, ErrServiceNotFound, "service_not_found"},
	{StatusInvalidArgumentLength, ErrInvalidArgumentLength, "invalid_argument_length"},
	{StatusInvalidArgumentCount, ErrInvalidArgumentCount, "invalid_argument_count"},
	{StatusInvalidMessageLength, ErrInvalidMessageLength, "invalid_message_length"},
	{StatusInitialization, ErrInitialization, "initialization"},
	{StatusArgumentNotFound, ErrArgumentNotFound, "argument_not_found"},
	{StatusNullPointer, ErrNullPointer, "null_pointer"},
	{StatusRegistrationCollision, ErrRegistrationCollision, "registration_collision"},
	{StatusMalformedMessage, ErrMalformedMessage, "malformed_message"},
	{StatusBufferOverflow, ErrBufferOverflow, "buffer_overflow"},
}

// StatusOf maps an error to its framework status code. A nil error is
// StatusOK; an error outside the framework set maps to StatusInitialization.
func StatusOf(err error) StatusCode {
	if err == nil {
		return StatusOK
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.code
		}
	}
	return StatusInitialization
}

// Err returns the sentinel error for a framework status, or nil for
// StatusOK and handler-defined codes.
func (s StatusCode) Err() error {
	for _, se := range statusErrors {
		if se.code == s {
			return se.err
		}
	}
	return nil
}

// Framework reports whether s is one of the codes produced by this package.
func (s StatusCode) Framework() bool {
	return s == StatusOK || s.Err() != nil
}

func (s StatusCode) String() string {
	if s == StatusOK {
		return "ok"
	}
	for _, se := range statusErrors {
		if se.code == s {
			return se.name
		}
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// ValidationError describes why a command failed validation. It unwraps
// to one of the package sentinels.
type ValidationError struct {
	Service string
	Index   int
	ArgID   string
	Reason  string
	Err     error
}

func (e ValidationError) Error() string {
	if e.ArgID == "" {
		return fmt.Sprintf("%v: service=%q: %s", e.Err, e.Service, e.Reason)
	}
	return fmt.Sprintf("%v: service=%q arg[%d]=%q: %s", e.Err, e.Service, e.Index, e.ArgID, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}
