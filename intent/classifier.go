package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	amountPattern  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	numericPattern = regexp.MustCompile(`^\d+$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	namePattern    = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)+$`)
)

type extractor func(ctx context.Context, c *Classifier, groups []string) Intent

type rule struct {
	kind     Kind
	patterns []*regexp.Regexp
	extract  extractor
}

// Classifier evaluates the ordered rule table against normalized messages.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules    []rule
	resolver Resolver
}

// New builds a classifier. resolver may be nil; name-shaped recipients are
// then returned unresolved.
func New(resolver Resolver) *Classifier {
	c := &Classifier{resolver: resolver}
	c.rules = orderedRules()
	return c
}

// orderedRules returns the rule table. Entry order is a first-class contract:
// the first matching pattern wins, so specific rules must stay above the
// generic rules they overlap with (the "buy <amount> cngn" entry sits above
// the bare "buy <amount>" entry, and card withdrawal above generic withdraw).
func orderedRules() []rule {
	return []rule{
		{
			kind: KindGreeting,
			patterns: compile(
				`^(hi|hello|hey|yo)[.!]*$`,
				`^good\s+(morning|afternoon|evening)[.!]*$`,
			),
			extract: simple(KindGreeting, 0.9),
		},
		{
			kind: KindHelp,
			patterns: compile(
				`^(help|menu|commands?)$`,
				`^what\s+can\s+you\s+do\??$`,
			),
			extract: simple(KindHelp, 0.9),
		},
		{
			kind: KindBalance,
			patterns: compile(
				`^(balance|bal)$`,
				`^(my|check|wallet)\s+balance$`,
			),
			extract: simple(KindBalance, 0.95),
		},
		{
			kind: KindSetupPin,
			patterns: compile(
				`^set\s*up\s+(my\s+)?pin$`,
				`^(set|create)\s+(my\s+)?pin$`,
			),
			extract: simple(KindSetupPin, 0.95),
		},
		{
			kind: KindResetPin,
			patterns: compile(
				`^(reset|forgot|change)\s+(my\s+)?pin$`,
			),
			extract: simple(KindResetPin, 0.95),
		},
		{
			kind: KindVerifyIdentity,
			patterns: compile(
				`^verify(\s+(my\s+)?identity)?$`,
				`^(start\s+)?kyc$`,
			),
			extract: simple(KindVerifyIdentity, 0.95),
		},
		{
			kind: KindBuyToken,
			patterns: compile(
				`^buy\s+(\S+)\s+cngn$`,
			),
			extract: extractBuy("cngn"),
		},
		{
			kind: KindBuyToken,
			patterns: compile(
				`^buy\s+(\S+)$`,
			),
			extract: extractBuy(""),
		},
		{
			kind: KindSendFunds,
			patterns: compile(
				`^send\s+(\S+)\s+(?:([a-z]{2,10})\s+)?to\s+(\S+)$`,
			),
			extract: extractSend,
		},
		{
			kind: KindFundCard,
			patterns: compile(
				`^fund\s+(?:my\s+)?card(?:\s+with)?\s+(\S+)$`,
			),
			extract: extractAmountOnly(KindFundCard),
		},
		{
			kind: KindCardWithdrawal,
			patterns: compile(
				`^withdraw\s+(\S+)\s+from\s+(?:my\s+)?card$`,
			),
			extract: extractAmountOnly(KindCardWithdrawal),
		},
		{
			kind: KindCashOut,
			patterns: compile(
				`^(?:withdraw|cash\s*out)\s+(\S+)$`,
			),
			extract: extractAmountOnly(KindCashOut),
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Classify normalizes the message and walks the rule table top to bottom.
// Classifying the same literal text twice yields an identical (Kind, Data)
// pair as long as the resolver is deterministic.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	normalized := normalize(text)
	if normalized == "" {
		return Intent{Kind: KindUnknown, Confidence: 0.1}
	}

	for _, r := range c.rules {
		for _, p := range r.patterns {
			if groups := p.FindStringSubmatch(normalized); groups != nil {
				return r.extract(ctx, c, groups)
			}
		}
	}

	return c.fallback(normalized)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// fallback inspects the unmatched message for a few keywords before giving
// up with a low-confidence unknown.
func (c *Classifier) fallback(normalized string) Intent {
	switch {
	case numericPattern.MatchString(normalized):
		return Intent{Kind: KindUnknown, Confidence: 0.3, Data: map[string]string{DataHint: "numeric"}}
	case strings.Contains(normalized, "balance"):
		return Intent{Kind: KindBalance, Confidence: 0.5}
	case strings.Contains(normalized, "card"):
		return Intent{Kind: KindHelp, Confidence: 0.4, Data: map[string]string{DataHint: "card"}}
	case containsAny(normalized, "send", "transfer", "pay", "money"):
		return Intent{Kind: KindHelp, Confidence: 0.4, Data: map[string]string{DataHint: "payments"}}
	}
	return Intent{Kind: KindUnknown, Confidence: 0.1}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func simple(kind Kind, confidence float64) extractor {
	return func(context.Context, *Classifier, []string) Intent {
		return Intent{Kind: kind, Confidence: confidence}
	}
}

func invalidAmount(raw string) Intent {
	return Intent{
		Kind:       KindError,
		Confidence: 1,
		Data: map[string]string{
			DataReason: fmt.Sprintf("%q is not a valid amount. Use digits with an optional decimal part, like 100 or 25.50.", raw),
		},
	}
}

func extractAmountOnly(kind Kind) extractor {
	return func(_ context.Context, _ *Classifier, groups []string) Intent {
		amount := groups[1]
		if !amountPattern.MatchString(amount) {
			return invalidAmount(amount)
		}
		return Intent{
			Kind:       kind,
			Confidence: 0.9,
			Data:       map[string]string{DataAmount: amount},
		}
	}
}

func extractBuy(token string) extractor {
	return func(_ context.Context, _ *Classifier, groups []string) Intent {
		amount := groups[1]
		if !amountPattern.MatchString(amount) {
			return invalidAmount(amount)
		}
		data := map[string]string{DataAmount: amount}
		if token != "" {
			data[DataToken] = token
		}
		return Intent{Kind: KindBuyToken, Confidence: 0.9, Data: data}
	}
}

func extractSend(ctx context.Context, c *Classifier, groups []string) Intent {
	amount, token, recipient := groups[1], groups[2], groups[3]
	if !amountPattern.MatchString(amount) {
		return invalidAmount(amount)
	}

	data := map[string]string{
		DataAmount:    amount,
		DataRecipient: recipient,
	}
	if token != "" && token != "to" {
		data[DataToken] = token
	}

	switch {
	case addressPattern.MatchString(recipient):
		data[DataRecipientType] = RecipientAddress
		data[DataResolvedAddress] = recipient
	case namePattern.MatchString(recipient):
		data[DataRecipientType] = RecipientName
		if c.resolver != nil {
			if addr, valid, err := c.resolver.Resolve(ctx, recipient); err == nil && valid {
				data[DataResolvedAddress] = addr
			}
		}
	default:
		// Unknown recipients are still returned, not rejected, so the
		// handler can produce a targeted error message.
		data[DataRecipientType] = RecipientUnknown
	}

	return Intent{Kind: KindSendFunds, Confidence: 0.9, Data: data}
}
