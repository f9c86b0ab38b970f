package chatcore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/velapay/chatcore/internal/audit"
	"github.com/velapay/chatcore/pin"
)

// AuditEvent is the structured record emitted for gate, flow, and
// operation activity.
type AuditEvent = audit.Event

// AuditSink receives audit events. Sinks are invoked from a single
// dispatcher goroutine; a slow sink delays events, never message handling.
type AuditSink = audit.Sink

// ChannelAuditSink buffers events on a channel, for tests and in-process
// consumers.
type ChannelAuditSink = audit.ChannelSink

// NewChannelAuditSink creates a ChannelAuditSink with the given buffer.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink creates a sink that writes one JSON object per event.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// AuditErrorCode is the stable error tag recorded on audit events.
type AuditErrorCode string

const (
	auditErrPinInvalid       AuditErrorCode = "pin_invalid"
	auditErrPinLocked        AuditErrorCode = "pin_locked"
	auditErrPinNotConfigured AuditErrorCode = "pin_not_configured"
	auditErrNoExecutor       AuditErrorCode = "no_executor"
	auditErrExecutorFailed   AuditErrorCode = "executor_failed"
	auditErrStateReset       AuditErrorCode = "state_reset"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	operation string,
	flow string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Operation: operation,
		Flow:      flow,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrPinInvalid):
		return auditErrPinInvalid
	case errors.Is(err, ErrPinLocked):
		return auditErrPinLocked
	case errors.Is(err, pin.ErrNotConfigured):
		return auditErrPinNotConfigured
	case errors.Is(err, ErrNoExecutor):
		return auditErrNoExecutor
	case errors.Is(err, ErrExecutorFailed):
		return auditErrExecutorFailed
	case errors.Is(err, ErrFlowStepInvalid):
		return auditErrStateReset
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, pin.ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
