// Package receipt mints and verifies signed execution receipts. After a
// gated operation executes, the engine can attach a compact tamper-evident
// token carrying the operation kind, reference, and amount, letting
// downstream systems reconcile a chat-confirmed transaction without
// trusting the chat transcript.
package receipt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the receipt signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrInvalidReceipt is returned for tokens that fail signature or
	// claim validation.
	ErrInvalidReceipt = errors.New("invalid receipt token")
	// ErrKeyRequired is returned by New when no signing key is configured.
	ErrKeyRequired = errors.New("receipt signing key required")
)

// Config controls receipt issuance.
type Config struct {
	Method SigningMethod
	Key    []byte // HS256 secret or Ed25519 private key seed
	TTL    time.Duration
	Issuer string
}

// Claims is the receipt payload.
type Claims struct {
	UserID    string `json:"uid"`
	Operation string `json:"op"`
	Reference string `json:"ref"`
	Amount    string `json:"amt,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and parses receipt tokens. Immutable after construction.
type Manager struct {
	cfg     Config
	signKey interface{}
	pubKey  interface{}
}

// New validates the config and builds a manager.
func New(cfg Config) (*Manager, error) {
	if len(cfg.Key) == 0 {
		return nil, ErrKeyRequired
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "chatcore"
	}

	m := &Manager{cfg: cfg}
	switch cfg.Method {
	case "", MethodHS256:
		m.cfg.Method = MethodHS256
		m.signKey = cfg.Key
		m.pubKey = cfg.Key
	case MethodEd25519:
		if len(cfg.Key) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: ed25519 seed must be %d bytes", ErrKeyRequired, ed25519.SeedSize)
		}
		priv := ed25519.NewKeyFromSeed(cfg.Key)
		m.signKey = priv
		m.pubKey = priv.Public()
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.Method)
	}
	return m, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.cfg.Method == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

// Issue mints a receipt for an executed operation.
func (m *Manager) Issue(userID, operation, reference, amount string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Operation: operation,
		Reference: reference,
		Amount:    amount,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(m.method(), claims)
	signed, err := token.SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}
	return signed, nil
}

// Parse verifies a receipt token and returns its claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.pubKey, nil
	}, jwt.WithIssuer(m.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	if !token.Valid {
		return nil, ErrInvalidReceipt
	}
	return claims, nil
}
