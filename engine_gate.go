package chatcore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velapay/chatcore/internal/audit"
	"github.com/velapay/chatcore/pin"
	"github.com/velapay/chatcore/session"
)

var pinInputPattern = regexp.MustCompile(`^\d{4}$`)

const gateRetryPrompt = "Please enter your 4-digit PIN, or type \"cancel\"."

// requireGate arms the PIN gate for op and returns the confirmation prompt.
// It refuses to arm when the user has no configured PIN or when no executor
// is registered for the operation's kind. Fee breakdowns are computed here,
// at arm time, so the prompt shows the cost the user will actually pay.
func (e *Engine) requireGate(ctx context.Context, sess *session.Session, op Operation) (Reply, error) {
	has, err := e.pins.HasPin(ctx, sess.UserID)
	if err != nil {
		return Reply{}, err
	}
	if !has {
		return Reply{
			Text: "Before you can do that, you need a transaction PIN. Type \"setup pin\" to create one.",
		}, nil
	}

	if _, ok := e.executors[op.Kind]; !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoExecutor, op.Kind)
	}

	if e.fees != nil {
		// A failed estimate degrades the prompt, it does not block the
		// operation.
		if fee, ferr := e.fees.Estimate(ctx, op.Kind, op.Amount); ferr == nil {
			op.Fee = fee
		}
	}

	if err := e.sessions.ArmGate(ctx, sess.UserID, uint8(op.Kind), op.payload()); err != nil {
		return Reply{}, err
	}

	e.metricInc(MetricGateArmed)
	e.emitAudit(ctx, audit.EventGateArmed, true, sess.UserID, op.Kind.String(), "", nil, map[string]string{
		"amount": op.Amount,
	})

	return Reply{Text: confirmPrompt(op)}, nil
}

// handleGate consumes a message while the gate is armed. Only a 4-digit
// literal is treated as a PIN attempt; the cancel token discards the
// pending operation; anything else re-prompts without consuming an attempt.
func (e *Engine) handleGate(ctx context.Context, sess *session.Session, text string) (Reply, error) {
	op, _ := operationFromSession(sess)

	if strings.EqualFold(text, e.config.Gate.CancelToken) {
		if err := e.sessions.ClearGate(ctx, sess.UserID); err != nil {
			return Reply{}, err
		}
		e.emitAudit(ctx, audit.EventGateCancelled, true, sess.UserID, op.Kind.String(), "", nil, nil)
		return Reply{
			Route: RouteGate,
			Text:  fmt.Sprintf("Cancelled — your %s was discarded. What would you like to do next?", op.Kind.describe()),
		}, nil
	}

	if !pinInputPattern.MatchString(text) {
		return Reply{Route: RouteGate, Text: gateRetryPrompt}, nil
	}

	v, err := e.pins.Verify(ctx, sess.UserID, text)
	if err != nil {
		if errors.Is(err, pin.ErrNotConfigured) {
			// The gate was armed for a user who lost their PIN record.
			// Reset to a safe state instead of propagating.
			if cerr := e.sessions.ClearGate(ctx, sess.UserID); cerr != nil {
				return Reply{}, cerr
			}
			e.emitAudit(ctx, audit.EventGateRejected, false, sess.UserID, op.Kind.String(), "", err, nil)
			return Reply{
				Route: RouteGate,
				Text:  "You don't have a PIN set up. Type \"setup pin\" to create one.",
			}, nil
		}
		return Reply{}, err
	}

	if v.Locked {
		if err := e.sessions.ClearGate(ctx, sess.UserID); err != nil {
			return Reply{}, err
		}
		e.metricInc(MetricPinLockout)
		e.emitAudit(ctx, audit.EventPinLockout, false, sess.UserID, op.Kind.String(), "", ErrPinLocked, nil)
		return Reply{
			Route: RouteGate,
			Text:  lockoutMessage(v.LockedUntil),
		}, nil
	}

	if !v.OK {
		e.metricInc(MetricPinRejected)
		e.emitAudit(ctx, audit.EventGateRejected, false, sess.UserID, op.Kind.String(), "", ErrPinInvalid, map[string]string{
			"remaining_attempts": fmt.Sprintf("%d", v.RemainingAttempts),
		})
		return Reply{
			Route: RouteGate,
			Text:  fmt.Sprintf("Incorrect PIN. You have %d attempt(s) left, or type \"cancel\".", v.RemainingAttempts),
		}, nil
	}

	return e.executePending(ctx, sess)
}

// executePending runs the confirmed operation exactly once. The gate is
// cleared before the executor is dispatched, so an executor failure cannot
// re-trigger the operation; the user must re-initiate it.
func (e *Engine) executePending(ctx context.Context, sess *session.Session) (Reply, error) {
	op, ok := operationFromSession(sess)

	if err := e.sessions.ClearGate(ctx, sess.UserID); err != nil {
		return Reply{}, err
	}

	e.metricInc(MetricGateConfirmed)
	e.emitAudit(ctx, audit.EventGateConfirmed, true, sess.UserID, op.Kind.String(), "", nil, nil)

	if !ok {
		return Reply{
			Route: RouteGate,
			Text:  "There was nothing pending to confirm. What would you like to do?",
		}, nil
	}

	exec, found := e.executors[op.Kind]
	if !found {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoExecutor, op.Kind)
	}

	res, execErr := exec.Execute(ctx, op)
	if execErr != nil {
		e.metricInc(MetricOperationFailed)
		e.emitAudit(ctx, audit.EventOperationResult, false, sess.UserID, op.Kind.String(), "",
			fmt.Errorf("%w: %v", ErrExecutorFailed, execErr), nil)
		return Reply{
			Route: RouteGate,
			Text:  fmt.Sprintf("Your PIN was correct, but the %s failed. It was not retried — please start it again.", op.Kind.describe()),
		}, nil
	}

	reference := res.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	e.metricInc(MetricOperationExecuted)
	e.emitAudit(ctx, audit.EventOperationResult, true, sess.UserID, op.Kind.String(), "", nil, map[string]string{
		"reference": reference,
	})

	reply := Reply{
		Route:     RouteGate,
		Reference: reference,
		Text:      res.Message,
	}
	if reply.Text == "" {
		reply.Text = fmt.Sprintf("Done! Your %s went through. Reference: %s", op.Kind.describe(), reference)
	}

	if e.receipts != nil {
		if token, err := e.receipts.Issue(sess.UserID, op.Kind.String(), reference, op.Amount); err == nil {
			reply.Receipt = token
		}
	}

	return reply, nil
}

func lockoutMessage(until time.Time) string {
	remaining := time.Until(until).Round(time.Minute)
	if remaining < time.Minute {
		remaining = time.Minute
	}
	return fmt.Sprintf("Too many incorrect attempts. PIN entry is locked for about %s. Your pending operation was discarded.", remaining)
}
