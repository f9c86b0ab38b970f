package chatcore

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "zero session ttl",
			mutate:  func(c *Config) { c.Session.TTL = 0 },
			wantMsg: "Session TTL",
		},
		{
			name:    "empty cancel token",
			mutate:  func(c *Config) { c.Gate.CancelToken = "" },
			wantMsg: "CancelToken",
		},
		{
			name:    "zero pin attempts",
			mutate:  func(c *Config) { c.Pin.MaxAttempts = 0 },
			wantMsg: "MaxAttempts",
		},
		{
			name:    "negative lockout",
			mutate:  func(c *Config) { c.Pin.LockoutDuration = -time.Minute },
			wantMsg: "LockoutDuration",
		},
		{
			name:    "receipts without key",
			mutate:  func(c *Config) { c.Receipt.Enabled = true },
			wantMsg: "Receipt Key",
		},
		{
			name: "receipts bad method",
			mutate: func(c *Config) {
				c.Receipt.Enabled = true
				c.Receipt.Key = []byte("0123456789abcdef0123456789abcdef")
				c.Receipt.SigningMethod = "rs256"
			},
			wantMsg: "signing method",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	_, err := New().Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis requirement error, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	rig := newTestEngine(t, nil)
	_ = rig

	b := New().WithRedis(rig.client)
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestCloneConfigCopiesReceiptKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Receipt.Key = []byte("secret")

	out := cloneConfig(cfg)
	out.Receipt.Key[0] = 'X'

	if cfg.Receipt.Key[0] != 's' {
		t.Fatal("cloneConfig must deep-copy the receipt key")
	}
}
