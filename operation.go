package chatcore

import (
	"fmt"
	"strings"

	"github.com/velapay/chatcore/session"
)

// OperationKind tags a gated operation with its executor.
type OperationKind uint8

const (
	opNone OperationKind = iota
	// OpSendFunds transfers funds to a resolved recipient address.
	OpSendFunds
	// OpBuyToken purchases tokens.
	OpBuyToken
	// OpFundCard tops up the user's card.
	OpFundCard
	// OpCardWithdrawal moves funds off the card back to the wallet.
	OpCardWithdrawal
	// OpCashOut withdraws funds to fiat.
	OpCashOut
)

var operationNames = map[OperationKind]string{
	OpSendFunds:      "send_funds",
	OpBuyToken:       "buy_token",
	OpFundCard:       "fund_card",
	OpCardWithdrawal: "card_withdrawal",
	OpCashOut:        "cash_out",
}

// String returns the stable lowercase name of the kind.
func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k OperationKind) describe() string {
	switch k {
	case OpSendFunds:
		return "transfer"
	case OpBuyToken:
		return "purchase"
	case OpFundCard:
		return "card top-up"
	case OpCardWithdrawal:
		return "card withdrawal"
	case OpCashOut:
		return "cash out"
	default:
		return "operation"
	}
}

// Operation is the typed payload armed behind the PIN gate and handed to
// its executor exactly once on confirmation.
type Operation struct {
	Kind   OperationKind
	UserID string

	Amount string
	Token  string

	// Recipient is the resolved destination address, when the operation
	// has one. RecipientName keeps the handle the user typed.
	Recipient     string
	RecipientName string

	// Fee is the estimator's breakdown captured at arm time.
	Fee string
}

// Session payload keys for a pending operation.
const (
	payloadAmount        = "amount"
	payloadToken         = "token"
	payloadRecipient     = "recipient"
	payloadRecipientName = "recipientName"
	payloadFee           = "fee"
)

func (op Operation) payload() map[string]string {
	m := make(map[string]string, 5)
	if op.Amount != "" {
		m[payloadAmount] = op.Amount
	}
	if op.Token != "" {
		m[payloadToken] = op.Token
	}
	if op.Recipient != "" {
		m[payloadRecipient] = op.Recipient
	}
	if op.RecipientName != "" {
		m[payloadRecipientName] = op.RecipientName
	}
	if op.Fee != "" {
		m[payloadFee] = op.Fee
	}
	return m
}

// operationFromSession rebuilds the pending operation armed on a session.
// The second return is false when the session has no armed gate.
func operationFromSession(sess *session.Session) (Operation, bool) {
	if !sess.GateArmed() || sess.PendingKind == 0 {
		return Operation{}, false
	}
	op := Operation{
		Kind:   OperationKind(sess.PendingKind),
		UserID: sess.UserID,
	}
	if p := sess.PendingPayload; p != nil {
		op.Amount = p[payloadAmount]
		op.Token = p[payloadToken]
		op.Recipient = p[payloadRecipient]
		op.RecipientName = p[payloadRecipientName]
		op.Fee = p[payloadFee]
	}
	return op, true
}

// confirmPrompt summarizes the armed operation for the user, including the
// fee breakdown captured at arm time.
func confirmPrompt(op Operation) string {
	var summary string
	switch op.Kind {
	case OpSendFunds:
		to := op.RecipientName
		if to == "" {
			to = op.Recipient
		}
		summary = fmt.Sprintf("You're sending %s %s to %s.", op.Amount, tokenOrDefault(op.Token), to)
	case OpBuyToken:
		summary = fmt.Sprintf("You're buying %s %s.", op.Amount, tokenOrDefault(op.Token))
	case OpFundCard:
		summary = fmt.Sprintf("You're funding your card with %s %s.", op.Amount, tokenOrDefault(op.Token))
	case OpCardWithdrawal:
		summary = fmt.Sprintf("You're withdrawing %s %s from your card.", op.Amount, tokenOrDefault(op.Token))
	case OpCashOut:
		summary = fmt.Sprintf("You're cashing out %s %s.", op.Amount, tokenOrDefault(op.Token))
	default:
		summary = "Please confirm this operation."
	}
	if op.Fee != "" {
		summary += "\n" + op.Fee
	}
	return summary + "\nEnter your 4-digit PIN to confirm, or type \"cancel\"."
}

func tokenOrDefault(token string) string {
	if token == "" {
		return "CNGN"
	}
	return strings.ToUpper(token)
}
