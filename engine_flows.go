package chatcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/velapay/chatcore/internal/audit"
	"github.com/velapay/chatcore/internal/flows"
	"github.com/velapay/chatcore/session"
)

// startFlow begins a wizard and runs its entry step to produce the opening
// prompt.
func (e *Engine) startFlow(ctx context.Context, sess *session.Session, name string) (Reply, error) {
	def, ok := e.flows.Lookup(name)
	if !ok {
		return Reply{}, fmt.Errorf("unknown flow %q", name)
	}

	if err := e.sessions.StartFlow(ctx, sess.UserID, name, nil); err != nil {
		return Reply{}, err
	}

	e.metricInc(MetricFlowStarted)
	e.emitAudit(ctx, audit.EventFlowStarted, true, sess.UserID, "", name, nil, nil)

	res, err := def.Run(ctx, 1, sess.UserID, "", nil)
	if err != nil {
		return Reply{}, err
	}
	if err := e.applyFlowResult(ctx, sess.UserID, def, res); err != nil {
		return Reply{}, err
	}

	return Reply{Text: res.Reply}, nil
}

// handleFlow routes a message to the active wizard. The cancel token is
// intercepted here, before flow input, and exits any flow at any step.
func (e *Engine) handleFlow(ctx context.Context, sess *session.Session, text string) (Reply, error) {
	if strings.EqualFold(text, e.config.Gate.CancelToken) {
		if err := e.sessions.CompleteFlow(ctx, sess.UserID); err != nil {
			return Reply{}, err
		}
		e.metricInc(MetricFlowCancelled)
		e.emitAudit(ctx, audit.EventFlowCancelled, true, sess.UserID, "", sess.FlowName, nil, nil)
		return Reply{
			Route: RouteFlow,
			Text:  "Okay, I've cancelled that. What would you like to do next?",
		}, nil
	}

	def, ok := e.flows.Lookup(sess.FlowName)
	if !ok {
		return e.resetFlowState(ctx, sess, fmt.Errorf("%w: unknown flow %q", ErrFlowStepInvalid, sess.FlowName))
	}

	res, err := def.Run(ctx, int(sess.FlowStep), sess.UserID, text, sess.FlowData)
	if err != nil {
		if errors.Is(err, flows.ErrStepOutOfRange) {
			return e.resetFlowState(ctx, sess, fmt.Errorf("%w: %v", ErrFlowStepInvalid, err))
		}
		return Reply{}, err
	}

	if err := e.applyFlowResult(ctx, sess.UserID, def, res); err != nil {
		return Reply{}, err
	}

	return Reply{Route: RouteFlow, Text: res.Reply}, nil
}

// applyFlowResult writes a step result back to the session: merge captured
// data, then either complete the flow or move the step pointer.
func (e *Engine) applyFlowResult(ctx context.Context, userID string, def *flows.Definition, res flows.Result) error {
	if len(res.Merge) > 0 {
		if err := e.sessions.MergeFlowData(ctx, userID, res.Merge); err != nil {
			return err
		}
	}

	if res.Done {
		if err := e.sessions.CompleteFlow(ctx, userID); err != nil {
			return err
		}
		e.metricInc(MetricFlowCompleted)
		e.emitAudit(ctx, audit.EventFlowCompleted, true, userID, "", def.Name, nil, nil)
		return nil
	}

	if res.Delta != 0 {
		return e.sessions.AdvanceFlow(ctx, userID, res.Delta, def.StepCount())
	}
	return nil
}

// resetFlowState clears a corrupt flow rather than propagating a state
// error to the user.
func (e *Engine) resetFlowState(ctx context.Context, sess *session.Session, cause error) (Reply, error) {
	if err := e.sessions.CompleteFlow(ctx, sess.UserID); err != nil {
		return Reply{}, err
	}
	e.emitAudit(ctx, audit.EventFlowCancelled, false, sess.UserID, "", sess.FlowName, cause, nil)
	return Reply{
		Route: RouteFlow,
		Text:  "Something went wrong with that conversation, so I've reset it. What would you like to do?",
	}, nil
}
