package intent

import "context"

// Kind identifies the classified meaning of one inbound message.
type Kind uint8

const (
	// KindUnknown is the terminal fallback when nothing matches.
	KindUnknown Kind = iota
	// KindError is produced when a pattern matched but its extracted
	// arguments failed validation. It carries a human-readable reason.
	KindError
	// KindGreeting covers conversational openers.
	KindGreeting
	// KindHelp asks for the command menu.
	KindHelp
	// KindBalance asks for the account balance.
	KindBalance
	// KindSendFunds transfers funds to a recipient.
	KindSendFunds
	// KindBuyToken purchases a specific token.
	KindBuyToken
	// KindFundCard tops up the user's card.
	KindFundCard
	// KindCardWithdrawal moves funds off the card back to the wallet.
	KindCardWithdrawal
	// KindCashOut withdraws funds to fiat.
	KindCashOut
	// KindSetupPin starts the PIN setup wizard.
	KindSetupPin
	// KindResetPin starts the PIN reset wizard.
	KindResetPin
	// KindVerifyIdentity starts the identity verification wizard.
	KindVerifyIdentity
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindError:          "error",
	KindGreeting:       "greeting",
	KindHelp:           "help",
	KindBalance:        "balance",
	KindSendFunds:      "send_funds",
	KindBuyToken:       "buy_token",
	KindFundCard:       "fund_card",
	KindCardWithdrawal: "card_withdrawal",
	KindCashOut:        "cash_out",
	KindSetupPin:       "setup_pin",
	KindResetPin:       "reset_pin",
	KindVerifyIdentity: "verify_identity",
}

// String returns the stable lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Intent is the ephemeral classification of one message. It is produced per
// message and never persisted.
type Intent struct {
	Kind       Kind
	Confidence float64
	Data       map[string]string
}

// Data keys populated by the classifier.
const (
	DataAmount          = "amount"
	DataToken           = "token"
	DataRecipient       = "recipient"
	DataRecipientType   = "recipientType"
	DataResolvedAddress = "resolvedAddress"
	DataReason          = "reason"
	DataHint            = "hint"
)

// Recipient shapes stored under DataRecipientType.
const (
	RecipientAddress = "address"
	RecipientName    = "name"
	RecipientUnknown = "unknown"
)

// Resolver maps a human-readable payment name to an address. Implementations
// are external collaborators (a naming service, an address book).
type Resolver interface {
	Resolve(ctx context.Context, name string) (address string, valid bool, err error)
}
