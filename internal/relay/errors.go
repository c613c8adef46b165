package relay

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the errors reported to observers.
type ErrorKind string

const (
	SpawnError             ErrorKind = "spawn_error"
	BindError              ErrorKind = "bind_error"
	MalformedPacket        ErrorKind = "malformed_packet"
	PartialPacketDiscarded ErrorKind = "partial_packet_discarded"
	EnumerationError       ErrorKind = "enumeration_error"
	TrackerExited          ErrorKind = "tracker_exited"
)

// Fatal reports whether an error of this kind ends the session.
func (k ErrorKind) Fatal() bool {
	switch k {
	case SpawnError, BindError, TrackerExited:
		return true
	}
	return false
}

// Error is a session fault carrying its kind and a human readable message.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to users.
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

var (
	ErrAlreadyRunning = errors.New("relay session already running")
	ErrNotRunning     = errors.New("no relay session running")
	ErrNoReading      = errors.New("no rotation received yet")
	ErrInvalidModel   = errors.New("invalid model tier")
	ErrControllerDown = errors.New("relay controller is not running")
)
