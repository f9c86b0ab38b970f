package directory

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestVerifyIdentityLevels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	level, err := s.VerifyIdentity(ctx, "user-1", "Ada", "Obi", "")
	if err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if level != LevelBasic {
		t.Fatalf("level = %d, want %d", level, LevelBasic)
	}

	level, err = s.VerifyIdentity(ctx, "user-1", "Ada", "Obi", "NIN-12345678")
	if err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if level != LevelFull {
		t.Fatalf("level = %d, want %d", level, LevelFull)
	}

	p, err := s.Profile(ctx, "user-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p == nil || p.Level != LevelFull || p.IDNumber != "NIN-12345678" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestProfileAbsent(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Profile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestResolveHandle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RegisterHandle(ctx, "Ada.Pay", "0x1111111111111111111111111111111111111111"); err != nil {
		t.Fatalf("RegisterHandle: %v", err)
	}

	// Resolution is case-insensitive.
	addr, ok, err := s.Resolve(ctx, "ada.pay")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok || addr != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("Resolve = %q, %v", addr, ok)
	}

	_, ok, err = s.Resolve(ctx, "unknown.handle")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Fatal("unknown handle should not resolve")
	}
}

func TestRegisterHandleOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RegisterHandle(ctx, "joe.pay", "0xaaaa"); err != nil {
		t.Fatalf("RegisterHandle: %v", err)
	}
	if err := s.RegisterHandle(ctx, "joe.pay", "0xbbbb"); err != nil {
		t.Fatalf("RegisterHandle: %v", err)
	}

	addr, ok, _ := s.Resolve(ctx, "joe.pay")
	if !ok || addr != "0xbbbb" {
		t.Fatalf("Resolve = %q, %v, want rebound address", addr, ok)
	}
}

func TestRegisterHandleValidation(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterHandle(context.Background(), "  ", "0xaaaa"); err == nil {
		t.Fatal("expected error for empty handle")
	}
	if err := s.RegisterHandle(context.Background(), "joe.pay", ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}
