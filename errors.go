package chatcore

import (
	"errors"

	"github.com/velapay/chatcore/session"
)

var (
	// ErrEmptyUserID is returned by HandleMessage for a message without a
	// sender.
	ErrEmptyUserID = errors.New("user id required")
	// ErrPinInvalid tags a wrong-PIN attempt in the audit trail. It is
	// surfaced to users as a retry prompt, not an error.
	ErrPinInvalid = errors.New("pin rejected")
	// ErrPinLocked tags an active PIN lockout in the audit trail.
	ErrPinLocked = errors.New("pin locked")
	// ErrNoExecutor is returned when a gated operation has no registered
	// executor for its kind.
	ErrNoExecutor = errors.New("no executor registered for operation kind")
	// ErrExecutorFailed wraps an executor error recorded in the audit
	// trail. It is never returned to callers: executor failures after a
	// successful PIN check surface as a conversational reply, not an
	// error, and are not retried.
	ErrExecutorFailed = errors.New("operation executor failed")
	// ErrStoreUnavailable is the session backend failure sentinel.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrFlowStepInvalid marks a session whose flow step fell outside the
	// flow's table. The engine resets the flow instead of propagating it.
	ErrFlowStepInvalid = errors.New("flow step invalid")
)
