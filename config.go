package chatcore

import (
	"errors"
	"time"
)

// Config is the engine configuration. Construct it from defaults via the
// Builder and override individual fields; a zero Config is not valid.
type Config struct {
	Session SessionConfig
	Gate    GateConfig
	Pin     PinConfig
	Intent  IntentConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Receipt ReceiptConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string
	// TTL is the sliding idle expiry. Every handled message pushes the
	// session's expiry TTL into the future.
	TTL time.Duration
	// SweepInterval is the cadence of the optional background sweep
	// started by Engine.StartSweeper.
	SweepInterval time.Duration
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig controls the PIN gate dispatcher branch.
type GateConfig struct {
	// CancelToken is the literal message that cancels an armed gate or an
	// active wizard. Matched case-insensitively.
	CancelToken string
}

/*
====================================
PIN CONFIG
====================================
*/

// PinConfig controls the bundled PIN verifier. Ignored when a custom
// PinVerifier is injected through the Builder.
type PinConfig struct {
	RedisPrefix     string
	MaxAttempts     int
	LockoutDuration time.Duration
	FailureWindow   time.Duration
}

/*
====================================
INTENT CONFIG
====================================
*/

// IntentConfig controls message classification.
type IntentConfig struct {
	// MaxTextLength caps the message length fed to the classifier; longer
	// messages are truncated first.
	MaxTextLength int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is full instead of blocking
	// message handling. Drops are counted and observable.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                bool
	EnableLatencyHistogram bool
}

/*
====================================
RECEIPT CONFIG
====================================
*/

// ReceiptConfig controls signed execution receipts. Disabled by default.
type ReceiptConfig struct {
	Enabled       bool
	SigningMethod string // "hs256" (default) or "ed25519"
	Key           []byte
	TTL           time.Duration
	Issuer        string
}

// DefaultConfig returns the engine defaults, for callers that override a
// few fields before passing the result to Builder.WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:   "cs",
			TTL:           30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Gate: GateConfig{
			CancelToken: "cancel",
		},
		Pin: PinConfig{
			RedisPrefix:     "pc",
			MaxAttempts:     3,
			LockoutDuration: 15 * time.Minute,
			FailureWindow:   10 * time.Minute,
		},
		Intent: IntentConfig{
			MaxTextLength: 2048,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                false,
			EnableLatencyHistogram: false,
		},
		Receipt: ReceiptConfig{
			Enabled:       false,
			SigningMethod: "hs256",
			TTL:           24 * time.Hour,
			Issuer:        "chatcore",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Receipt.Key = cloneBytes(cfg.Receipt.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session SweepInterval must be >= 0")
	}

	if c.Gate.CancelToken == "" {
		return errors.New("Gate CancelToken must not be empty")
	}

	if c.Pin.MaxAttempts < 1 {
		return errors.New("Pin MaxAttempts must be >= 1")
	}
	if c.Pin.LockoutDuration <= 0 {
		return errors.New("Pin LockoutDuration must be > 0")
	}
	if c.Pin.FailureWindow <= 0 {
		return errors.New("Pin FailureWindow must be > 0")
	}

	if c.Intent.MaxTextLength <= 0 {
		return errors.New("Intent MaxTextLength must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	if c.Receipt.Enabled {
		if c.Receipt.SigningMethod != "hs256" && c.Receipt.SigningMethod != "ed25519" {
			return errors.New("unsupported Receipt signing method")
		}
		if len(c.Receipt.Key) == 0 {
			return errors.New("Receipt Key must be provided when receipts are enabled")
		}
		if c.Receipt.TTL <= 0 {
			return errors.New("Receipt TTL must be > 0")
		}
	}

	return nil
}
