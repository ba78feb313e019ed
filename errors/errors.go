// Package errors defines the error taxonomy of the collaboration server.
//
// Three categories exist and are always recovered per message, never per
// connection: decode errors (malformed wire payload), invalid-message
// errors (well-formed but not processable in the sender's current state)
// and domain errors (the operation itself is not permitted). All of them
// are reported to the offending sender only.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidMessageKind  = fmt.Errorf("invalid message type")
	ErrMissingArtifactPath = fmt.Errorf("no artifact path given")
	ErrNotJoined           = fmt.Errorf("did not join session for given artifact path")
	ErrUnhandled           = fmt.Errorf("message can not be processed")
	ErrArtifactNotFound    = fmt.Errorf("no artifact found for path")
	ErrArtifactExists      = fmt.Errorf("artifact already exists")
	ErrSessionInProcess    = fmt.Errorf("session for artifact is still in process")
	ErrUnknownIdentity     = fmt.Errorf("unknown identity")
	ErrAlreadyLeft         = fmt.Errorf("participant already left")
	ErrNotAllowed          = fmt.Errorf("operation not allowed")
	ErrNothingToUndo       = fmt.Errorf("nothing to undo")
	ErrNothingToRedo       = fmt.Errorf("nothing to redo")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)

// DecodeError wraps any failure to turn a wire frame into a message.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode wraps cause as a DecodeError.
func Decode(cause error) error {
	return &DecodeError{Cause: cause}
}

// IsDecode reports whether err is a DecodeError anywhere in its chain.
func IsDecode(err error) bool {
	var de *DecodeError
	return stderrors.As(err, &de)
}

// IsInvalidMessage reports whether err belongs to the invalid-message
// category, i.e. the frame decoded fine but cannot be dispatched.
func IsInvalidMessage(err error) bool {
	return stderrors.Is(err, ErrMissingArtifactPath) ||
		stderrors.Is(err, ErrNotJoined) ||
		stderrors.Is(err, ErrUnhandled) ||
		stderrors.Is(err, ErrInvalidMessageKind)
}

// Is and As re-export the standard helpers so callers do not need a
// second errors import next to this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
