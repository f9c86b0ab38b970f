package intent

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type staticResolver struct {
	addresses map[string]string
	err       error
}

func (r staticResolver) Resolve(_ context.Context, name string) (string, bool, error) {
	if r.err != nil {
		return "", false, r.err
	}
	addr, ok := r.addresses[name]
	return addr, ok, nil
}

func TestClassifyTable(t *testing.T) {
	c := New(nil)

	cases := []struct {
		text string
		kind Kind
		data map[string]string
	}{
		{"hello", KindGreeting, nil},
		{"Good Morning!", KindGreeting, nil},
		{"help", KindHelp, nil},
		{"balance", KindBalance, nil},
		{"check balance", KindBalance, nil},
		{"set up pin", KindSetupPin, nil},
		{"create my pin", KindSetupPin, nil},
		{"reset pin", KindResetPin, nil},
		{"forgot my pin", KindResetPin, nil},
		{"verify identity", KindVerifyIdentity, nil},
		{"kyc", KindVerifyIdentity, nil},
		{"buy 100", KindBuyToken, map[string]string{DataAmount: "100"}},
		{"fund card 50", KindFundCard, map[string]string{DataAmount: "50"}},
		{"fund my card with 25.50", KindFundCard, map[string]string{DataAmount: "25.50"}},
		{"withdraw 30 from card", KindCardWithdrawal, map[string]string{DataAmount: "30"}},
		{"withdraw 200", KindCashOut, map[string]string{DataAmount: "200"}},
		{"cash out 75", KindCashOut, map[string]string{DataAmount: "75"}},
	}

	for _, tc := range cases {
		got := c.Classify(context.Background(), tc.text)
		if got.Kind != tc.kind {
			t.Errorf("Classify(%q) kind = %v, want %v", tc.text, got.Kind, tc.kind)
			continue
		}
		for k, v := range tc.data {
			if got.Data[k] != v {
				t.Errorf("Classify(%q) data[%s] = %q, want %q", tc.text, k, got.Data[k], v)
			}
		}
	}
}

func TestOrderingSpecificBeforeGeneric(t *testing.T) {
	c := New(nil)

	// "buy 100 cngn" matches both the token-specific entry and the bare
	// "buy <amount>" entry; the specific one is listed first and must win.
	got := c.Classify(context.Background(), "buy 100 cngn")
	if got.Kind != KindBuyToken {
		t.Fatalf("expected buy intent, got %v", got.Kind)
	}
	if got.Data[DataToken] != "cngn" {
		t.Fatalf("expected token-specific rule to win, data=%v", got.Data)
	}

	// "withdraw 30 from card" matches both the card-withdrawal entry and
	// the generic withdraw entry below it.
	got = c.Classify(context.Background(), "withdraw 30 from card")
	if got.Kind != KindCardWithdrawal {
		t.Fatalf("expected card withdrawal to win over generic withdraw, got %v", got.Kind)
	}
}

func TestInvalidAmountDowngradesToError(t *testing.T) {
	c := New(nil)

	for _, text := range []string{
		"send abc to 0x1234567890123456789012345678901234567890",
		"fund card ten",
		"withdraw 1.2.3",
		"buy 1,000",
	} {
		got := c.Classify(context.Background(), text)
		if got.Kind != KindError {
			t.Errorf("Classify(%q) = %v, want error intent", text, got.Kind)
		}
		if got.Data[DataReason] == "" {
			t.Errorf("Classify(%q) missing human-readable reason", text)
		}
	}
}

func TestRecipientClassification(t *testing.T) {
	resolver := staticResolver{addresses: map[string]string{
		"alice.basetest.eth": "0x9999999999999999999999999999999999999999",
	}}
	c := New(resolver)

	got := c.Classify(context.Background(), "send 100 to 0x1234567890123456789012345678901234567890")
	if got.Data[DataRecipientType] != RecipientAddress {
		t.Fatalf("expected address recipient, got %v", got.Data)
	}
	if got.Data[DataResolvedAddress] == "" {
		t.Fatal("expected address recipient to self-resolve")
	}

	got = c.Classify(context.Background(), "send 100 to alice.basetest.eth")
	if got.Data[DataRecipientType] != RecipientName {
		t.Fatalf("expected name recipient, got %v", got.Data)
	}
	if got.Data[DataResolvedAddress] != "0x9999999999999999999999999999999999999999" {
		t.Fatalf("expected resolved address, got %v", got.Data)
	}

	got = c.Classify(context.Background(), "send 100 to bob.unknown.eth")
	if got.Data[DataRecipientType] != RecipientName || got.Data[DataResolvedAddress] != "" {
		t.Fatalf("expected unresolved name recipient, got %v", got.Data)
	}

	got = c.Classify(context.Background(), "send 100 to ???")
	if got.Kind != KindSendFunds {
		t.Fatalf("unknown recipients must still be returned, got %v", got.Kind)
	}
	if got.Data[DataRecipientType] != RecipientUnknown {
		t.Fatalf("expected unknown recipient, got %v", got.Data)
	}
}

func TestResolverErrorLeavesRecipientUnresolved(t *testing.T) {
	c := New(staticResolver{err: errors.New("naming service down")})

	got := c.Classify(context.Background(), "send 100 to alice.basetest.eth")
	if got.Kind != KindSendFunds {
		t.Fatalf("expected send intent despite resolver failure, got %v", got.Kind)
	}
	if got.Data[DataResolvedAddress] != "" {
		t.Fatalf("expected no resolved address, got %v", got.Data)
	}
}

func TestFallbackHeuristics(t *testing.T) {
	c := New(nil)

	cases := []struct {
		text string
		kind Kind
		hint string
	}{
		{"4321", KindUnknown, "numeric"},
		{"what is my balance please", KindBalance, ""},
		{"something about my card", KindHelp, "card"},
		{"i want to transfer funds somehow", KindHelp, "payments"},
		{"qwerty asdf", KindUnknown, ""},
	}

	for _, tc := range cases {
		got := c.Classify(context.Background(), tc.text)
		if got.Kind != tc.kind {
			t.Errorf("Classify(%q) = %v, want %v", tc.text, got.Kind, tc.kind)
		}
		if tc.hint != "" && got.Data[DataHint] != tc.hint {
			t.Errorf("Classify(%q) hint = %q, want %q", tc.text, got.Data[DataHint], tc.hint)
		}
		if got.Confidence > 0.5 {
			t.Errorf("Classify(%q) fallback confidence %v too high", tc.text, got.Confidence)
		}
	}
}

func TestClassificationIsIdempotent(t *testing.T) {
	c := New(staticResolver{addresses: map[string]string{
		"alice.basetest.eth": "0x9999999999999999999999999999999999999999",
	}})

	for _, text := range []string{
		"send 100 to alice.basetest.eth",
		"buy 100 cngn",
		"hello",
		"gibberish text here",
	} {
		first := c.Classify(context.Background(), text)
		second := c.Classify(context.Background(), text)
		if first.Kind != second.Kind || !reflect.DeepEqual(first.Data, second.Data) {
			t.Errorf("Classify(%q) not idempotent: %+v vs %+v", text, first, second)
		}
	}
}

func TestEmptyMessage(t *testing.T) {
	c := New(nil)
	if got := c.Classify(context.Background(), "   "); got.Kind != KindUnknown {
		t.Fatalf("expected unknown for blank message, got %v", got.Kind)
	}
}
