package chatcore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/velapay/chatcore/intent"
	"github.com/velapay/chatcore/internal/audit"
	"github.com/velapay/chatcore/internal/flows"
	"github.com/velapay/chatcore/internal/locks"
	"github.com/velapay/chatcore/pin"
	"github.com/velapay/chatcore/receipt"
	"github.com/velapay/chatcore/session"
)

// Builder assembles an Engine. Configure it with the With setters and call
// Build once; a Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	pins      PinVerifier
	executors map[OperationKind]OperationExecutor
	identity  IdentityVerifier
	resolver  NameResolver
	fees      FeeEstimator
	balance   BalanceProvider
	auditSink AuditSink

	built bool
}

// New creates a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config:    defaultConfig(),
		executors: make(map[OperationKind]OperationExecutor),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions and the bundled PIN
// verifier. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPinVerifier injects a custom PIN collaborator. Without one the
// bundled Redis-backed verifier is built from Config.Pin.
func (b *Builder) WithPinVerifier(v PinVerifier) *Builder {
	b.pins = v
	return b
}

// WithExecutor registers the executor for one operation kind. The gate
// refuses to arm operations whose kind has no executor.
func (b *Builder) WithExecutor(kind OperationKind, exec OperationExecutor) *Builder {
	b.executors[kind] = exec
	return b
}

// WithIdentityVerifier injects the identity collaborator used by the
// identity wizard.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.identity = v
	return b
}

// WithNameResolver injects the handle-to-address resolver used by the
// classifier for send recipients.
func (b *Builder) WithNameResolver(r NameResolver) *Builder {
	b.resolver = r
	return b
}

// WithFeeEstimator injects the fee collaborator consulted at gate-arm time.
func (b *Builder) WithFeeEstimator(f FeeEstimator) *Builder {
	b.fees = f
	return b
}

// WithBalanceProvider injects the balance collaborator.
func (b *Builder) WithBalanceProvider(p BalanceProvider) *Builder {
	b.balance = p
	return b
}

// WithAuditSink sets the audit sink and enables the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pins := b.pins
	if pins == nil {
		pins = pin.New(b.redis, pin.Config{
			RedisPrefix:     cfg.Pin.RedisPrefix,
			MaxAttempts:     cfg.Pin.MaxAttempts,
			LockoutDuration: cfg.Pin.LockoutDuration,
			FailureWindow:   cfg.Pin.FailureWindow,
		})
	}

	executors := make(map[OperationKind]OperationExecutor, len(b.executors))
	for kind, exec := range b.executors {
		if exec == nil {
			return nil, errors.New("nil executor registered")
		}
		executors[kind] = exec
	}

	engine := &Engine{
		config:     cfg,
		sessions:   session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL),
		pins:       pins,
		classifier: intent.New(b.resolver),
		executors:  executors,
		identity:   b.identity,
		fees:       b.fees,
		balance:    b.balance,
		locks:      locks.NewKeyed(0),
		metrics:    NewMetrics(cfg.Metrics),
	}

	engine.flows = flows.NewRegistry(flows.Deps{
		SetupPin:         pins.Setup,
		ResetPin:         pins.Reset,
		SecurityQuestion: pins.SecurityQuestion,
		VerifyIdentity:   engine.verifyIdentity,
		Questions:        pin.Questions,
	})

	if cfg.Audit.Enabled && b.auditSink != nil {
		engine.audit = audit.NewDispatcher(b.auditSink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	if cfg.Receipt.Enabled {
		rm, err := receipt.New(receipt.Config{
			Method: receipt.SigningMethod(cfg.Receipt.SigningMethod),
			Key:    cloneBytes(cfg.Receipt.Key),
			TTL:    cfg.Receipt.TTL,
			Issuer: cfg.Receipt.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.receipts = rm
	}

	b.built = true

	return engine, nil
}

// verifyIdentity adapts the optional IdentityVerifier for flow completion.
func (e *Engine) verifyIdentity(ctx context.Context, userID, firstName, lastName, idNumber string) (int, error) {
	if e.identity == nil {
		return 0, errors.New("identity verification unavailable")
	}
	return e.identity.VerifyIdentity(ctx, userID, firstName, lastName, idNumber)
}
