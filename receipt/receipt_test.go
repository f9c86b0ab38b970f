package receipt

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseHS256(t *testing.T) {
	m, err := New(Config{Key: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	token, err := m.Issue("u1", "send_funds", "ref-123", "100")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Operation != "send_funds" || claims.Reference != "ref-123" || claims.Amount != "100" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	m, err := New(Config{Method: MethodEd25519, Key: seed, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	token, err := m.Issue("u1", "fund_card", "ref-9", "50")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m, _ := New(Config{Key: []byte("0123456789abcdef0123456789abcdef")})
	token, _ := m.Issue("u1", "send_funds", "ref", "1")

	other, _ := New(Config{Key: []byte("ffffffffffffffffffffffffffffffff")})
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidReceipt) {
		t.Fatalf("expected ErrInvalidReceipt, got %v", err)
	}

	if _, err := m.Parse(token + "x"); !errors.Is(err, ErrInvalidReceipt) {
		t.Fatalf("expected ErrInvalidReceipt for mangled token, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if _, err := New(Config{Method: MethodEd25519, Key: []byte("short")}); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired for bad seed, got %v", err)
	}
	if _, err := New(Config{Method: "rsa", Key: []byte("0123456789abcdef")}); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
