package training

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorReason string

const (
	ErrReasonSessionActive     ErrorReason = "ERR_SESSION_ACTIVE"
	ErrReasonNotFound          ErrorReason = "ERR_NOT_FOUND"
	ErrReasonInconsistentState ErrorReason = "ERR_INCONSISTENT_STATE"
	ErrReasonNoActiveSession   ErrorReason = "ERR_NO_ACTIVE_SESSION"
	ErrReasonMalformedBatch    ErrorReason = "ERR_MALFORMED_BATCH"
	ErrReasonEmptyBatch        ErrorReason = "ERR_EMPTY_BATCH"
	ErrReasonPersistence       ErrorReason = "ERR_PERSISTENCE"
)

func (e ErrorReason) String() string {
	return string(e)
}

// Error is returned by every operation of the Manager and the Gateway. The
// Message is safe to show to clients, the wrapped cause is not.
type Error struct {
	Reason  ErrorReason
	Message string
	cause   error
}

func newError(reason ErrorReason, message string, cause error) error {
	return &Error{
		Reason:  reason,
		Message: message,
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewConflictError(message string) error {
	return newError(ErrReasonSessionActive, message, nil)
}

func NewNotFoundError(message string) error {
	return newError(ErrReasonNotFound, message, nil)
}

func NewInconsistentStateError(message string) error {
	return newError(ErrReasonInconsistentState, message, nil)
}

func NewNoActiveSessionError() error {
	return newError(ErrReasonNoActiveSession, "No active training session", nil)
}

func NewMalformedBatchError(message string) error {
	return newError(ErrReasonMalformedBatch, message, nil)
}

func NewEmptyBatchError() error {
	return newError(ErrReasonEmptyBatch, "No valid sensor readings found in the payload", nil)
}

func NewPersistenceError(message string, cause error) error {
	return newError(ErrReasonPersistence, message, cause)
}

// ReasonOf returns the reason of a training error or an empty reason for
// any other error.
func ReasonOf(err error) ErrorReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// MessageOf returns the client facing message of a training error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func IsConflictError(err error) bool {
	return ReasonOf(err) == ErrReasonSessionActive
}

func IsNotFoundError(err error) bool {
	return ReasonOf(err) == ErrReasonNotFound
}

func IsInconsistentStateError(err error) bool {
	return ReasonOf(err) == ErrReasonInconsistentState
}

func IsNoActiveSessionError(err error) bool {
	return ReasonOf(err) == ErrReasonNoActiveSession
}

func IsMalformedBatchError(err error) bool {
	return ReasonOf(err) == ErrReasonMalformedBatch
}

func IsEmptyBatchError(err error) bool {
	return ReasonOf(err) == ErrReasonEmptyBatch
}

func IsPersistenceError(err error) bool {
	return ReasonOf(err) == ErrReasonPersistence
}
