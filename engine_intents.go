package chatcore

import (
	"context"
	"fmt"

	"github.com/velapay/chatcore/intent"
	"github.com/velapay/chatcore/internal/flows"
	"github.com/velapay/chatcore/session"
)

const helpText = `Here's what I can do:
- "balance" — check your balance
- "send 100 to ada.pay" — send funds
- "buy 100 cngn" — buy tokens
- "fund card 50" — top up your card
- "withdraw 50 from card" — move funds off your card
- "cash out 100" — withdraw to fiat
- "setup pin" / "reset pin" — manage your transaction PIN
- "verify identity" — complete identity verification`

// handleIntent classifies a message with no armed gate and no active flow,
// and dispatches it. Unknown intents never produce errors, only help text.
func (e *Engine) handleIntent(ctx context.Context, sess *session.Session, text string) (Reply, error) {
	in := e.classifier.Classify(ctx, text)

	if in.Kind == intent.KindUnknown {
		e.metricInc(MetricIntentUnknown)
	} else {
		e.metricInc(MetricIntentMatched)
	}

	reply, err := e.dispatchIntent(ctx, sess, in)
	if err != nil {
		return Reply{}, err
	}
	reply.Route = RouteIntent
	reply.Intent = in.Kind
	return reply, nil
}

func (e *Engine) dispatchIntent(ctx context.Context, sess *session.Session, in intent.Intent) (Reply, error) {
	switch in.Kind {
	case intent.KindGreeting:
		return Reply{Text: "Hello! Type \"help\" to see what I can do."}, nil

	case intent.KindHelp:
		return Reply{Text: helpText}, nil

	case intent.KindBalance:
		return e.replyBalance(ctx, sess)

	case intent.KindSendFunds:
		return e.requireSend(ctx, sess, in)

	case intent.KindBuyToken:
		return e.requireGate(ctx, sess, Operation{
			Kind:   OpBuyToken,
			UserID: sess.UserID,
			Amount: in.Data[intent.DataAmount],
			Token:  in.Data[intent.DataToken],
		})

	case intent.KindFundCard:
		return e.requireGate(ctx, sess, Operation{
			Kind:   OpFundCard,
			UserID: sess.UserID,
			Amount: in.Data[intent.DataAmount],
		})

	case intent.KindCardWithdrawal:
		return e.requireGate(ctx, sess, Operation{
			Kind:   OpCardWithdrawal,
			UserID: sess.UserID,
			Amount: in.Data[intent.DataAmount],
		})

	case intent.KindCashOut:
		return e.requireGate(ctx, sess, Operation{
			Kind:   OpCashOut,
			UserID: sess.UserID,
			Amount: in.Data[intent.DataAmount],
		})

	case intent.KindSetupPin:
		has, err := e.pins.HasPin(ctx, sess.UserID)
		if err != nil {
			return Reply{}, err
		}
		if has {
			return Reply{Text: "You already have a PIN. Type \"reset pin\" to change it."}, nil
		}
		return e.startFlow(ctx, sess, flows.FlowPinSetup)

	case intent.KindResetPin:
		has, err := e.pins.HasPin(ctx, sess.UserID)
		if err != nil {
			return Reply{}, err
		}
		if !has {
			return Reply{Text: "You don't have a PIN yet. Type \"setup pin\" to create one."}, nil
		}
		return e.startFlow(ctx, sess, flows.FlowPinReset)

	case intent.KindVerifyIdentity:
		return e.startFlow(ctx, sess, flows.FlowIdentity)

	case intent.KindError:
		reason := in.Data[intent.DataReason]
		if reason == "" {
			reason = "I couldn't make sense of that."
		}
		return Reply{Text: reason}, nil

	default:
		return Reply{Text: unknownReply(in)}, nil
	}
}

// requireSend validates the recipient before arming the gate: an unknown
// recipient shape or an unresolvable handle is a user-correctable error,
// not an armed operation.
func (e *Engine) requireSend(ctx context.Context, sess *session.Session, in intent.Intent) (Reply, error) {
	recipient := in.Data[intent.DataRecipient]

	switch in.Data[intent.DataRecipientType] {
	case intent.RecipientAddress, intent.RecipientName:
		// resolvable shapes
	default:
		return Reply{
			Text: fmt.Sprintf("I don't recognize %q as a recipient. Use a wallet address (0x...) or a payment handle like ada.pay.", recipient),
		}, nil
	}

	resolved := in.Data[intent.DataResolvedAddress]
	if resolved == "" {
		return Reply{
			Text: fmt.Sprintf("I couldn't find %q. Check the handle and try again.", recipient),
		}, nil
	}

	return e.requireGate(ctx, sess, Operation{
		Kind:          OpSendFunds,
		UserID:        sess.UserID,
		Amount:        in.Data[intent.DataAmount],
		Token:         in.Data[intent.DataToken],
		Recipient:     resolved,
		RecipientName: recipient,
	})
}

func (e *Engine) replyBalance(ctx context.Context, sess *session.Session) (Reply, error) {
	if e.balance == nil {
		return Reply{Text: "Balance checks aren't available right now."}, nil
	}
	balance, err := e.balance.Balance(ctx, sess.UserID)
	if err != nil {
		// Downstream failure: canned message, no raw error text outbound.
		return Reply{Text: "I couldn't fetch your balance right now. Please try again shortly."}, nil
	}
	return Reply{Text: fmt.Sprintf("Your balance is %s.", balance)}, nil
}

func unknownReply(in intent.Intent) string {
	switch in.Data[intent.DataHint] {
	case "numeric":
		return "I got a number, but I'm not sure what for. If you want to send or buy, say e.g. \"send 100 to ada.pay\" or \"buy 100 cngn\"."
	default:
		return "I didn't understand that. " + helpText
	}
}
