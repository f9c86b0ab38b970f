package chatcore

import (
	"context"

	"github.com/velapay/chatcore/intent"
	"github.com/velapay/chatcore/pin"
)

// Inbound is one user message handed to the engine. UserID is the stable
// per-user key; ChannelAddress identifies where replies go (a phone number,
// a chat handle) and is recorded on the session.
type Inbound struct {
	UserID         string
	ChannelAddress string
	Text           string
	DisplayName    string
}

// Route identifies which dispatcher branch produced a reply.
type Route uint8

const (
	// RouteIntent means the message was classified as a fresh intent.
	RouteIntent Route = iota
	// RouteGate means the message was consumed by an armed PIN gate.
	RouteGate
	// RouteFlow means the message was routed to an active wizard.
	RouteFlow
)

// Reply is the outbound text for one inbound message, plus advisory
// routing detail for callers that log or test dispatch behavior.
type Reply struct {
	Text  string
	Route Route

	// Intent is set when Route is RouteIntent.
	Intent intent.Kind

	// Reference and Receipt are set when a gated operation executed.
	Reference string
	Receipt   string
}

// ExecResult is an executor's report of a completed operation.
type ExecResult struct {
	// Reference is the executor's transaction reference. When empty the
	// engine generates one.
	Reference string
	// Message optionally overrides the engine's default success text.
	Message string
}

// OperationExecutor performs one kind of gated operation. Execute is called
// exactly once per confirmed gate, synchronously, after the gate has been
// cleared; a returned error is reported to the user and never retried.
type OperationExecutor interface {
	Execute(ctx context.Context, op Operation) (ExecResult, error)
}

// FeeEstimator produces a human-readable fee breakdown at gate-arm time, so
// the confirmation prompt shows the cost the user will actually pay.
type FeeEstimator interface {
	Estimate(ctx context.Context, kind OperationKind, amount string) (string, error)
}

// BalanceProvider answers balance queries. Optional; without one the
// engine replies that balance checks are unavailable.
type BalanceProvider interface {
	Balance(ctx context.Context, userID string) (string, error)
}

// IdentityVerifier persists a verified identity and returns the granted
// level. The bundled directory.Store satisfies it.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, userID, firstName, lastName, idNumber string) (int, error)
}

// PinVerifier is the PIN collaborator contract. The bundled pin.Store is
// used when none is injected.
type PinVerifier = pin.Verifier

// NameResolver maps a payment handle to an address. The bundled
// directory.Store satisfies it.
type NameResolver = intent.Resolver
