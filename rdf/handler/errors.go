package handler

import (
	"errors"
	"fmt"
)

// ErrorCode classifies handler errors.
type ErrorCode string

const (
	// ErrCodeProtocol indicates a session discipline violation.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
	// ErrCodeConstruction indicates an invalid handler configuration.
	ErrCodeConstruction ErrorCode = "CONSTRUCTION_ERROR"
	// ErrCodeStopRequested indicates a stop signal that escaped a driver.
	ErrCodeStopRequested ErrorCode = "STOP_REQUESTED"
	// ErrCodeUnderlyingFailure indicates a failure raised by a collaborator.
	ErrCodeUnderlyingFailure ErrorCode = "UNDERLYING_FAILURE"
)

var (
	// ErrProtocol is returned when Start, Handle* or End is called out of order.
	ErrProtocol = errors.New("handler: protocol violation")
	// ErrConstruction is returned by constructors given an unusable configuration.
	ErrConstruction = errors.New("handler: invalid construction")
	// ErrStopRequested lets callback-style producers carry a stop signal
	// through an error return. Drivers turn it into a successful End.
	ErrStopRequested = errors.New("handler: stop requested")
)

// Code returns the classification of err, or "" for nil.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProtocol):
		return ErrCodeProtocol
	case errors.Is(err, ErrConstruction):
		return ErrCodeConstruction
	case errors.Is(err, ErrStopRequested):
		return ErrCodeStopRequested
	default:
		return ErrCodeUnderlyingFailure
	}
}

// Error adds the failing handler and operation to an error.
type Error struct {
	Handler string // handler name, e.g. "counter"
	Op      string // operation, e.g. "start"
	Err     error  // underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Handler, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func protocolError(handler, op, detail string) error {
	return &Error{Handler: handler, Op: op, Err: fmt.Errorf("%w: %s", ErrProtocol, detail)}
}

func constructionError(handler, detail string) error {
	return &Error{Handler: handler, Op: "new", Err: fmt.Errorf("%w: %s", ErrConstruction, detail)}
}
