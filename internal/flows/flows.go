// Package flows defines the multi-step conversation wizards and the step
// machine that runs them. Each flow is a static ordered list of step
// handlers; the session store tracks which step a user is on and the
// answers accumulated so far. Handlers are pure with respect to session
// state: they receive a read-only view of the accumulated data and report
// step movement, data merges, and completion through [Result].
package flows

import (
	"context"
	"errors"
	"fmt"
)

// Flow names. These are persisted in session records; renaming one is a
// breaking change for live sessions.
const (
	FlowPinSetup = "PIN_SETUP"
	FlowIdentity = "IDENTITY_VERIFICATION"
	FlowPinReset = "PIN_RESET"
)

// ErrStepOutOfRange is returned by Run for a step index outside the flow's
// table. Callers treat it as a state error and reset the session's flow.
var ErrStepOutOfRange = errors.New("flow step out of range")

// Result describes the outcome of running one step against one message.
//
// Delta is the step movement to apply: 0 re-prompts the same step (input
// failed validation), +1 advances, a negative value rolls back — used by
// confirmation steps to return the user to the step that captured the
// original value. Done marks the terminal step: the caller exits the flow
// unconditionally, whatever the completion handler did.
type Result struct {
	Reply string
	Delta int
	Done  bool
	Merge map[string]string
}

// Handler runs one step. input is the raw user message ("" on flow entry);
// data is the read-only accumulated wizard state.
type Handler func(ctx context.Context, userID, input string, data map[string]string) Result

// Definition is an immutable flow: an ordered list of step handlers.
// Step indices are 1-based; step 1 is the entry step run with empty input.
type Definition struct {
	Name  string
	steps []Handler
}

// StepCount returns the number of steps in the flow.
func (d *Definition) StepCount() int {
	return len(d.steps)
}

// Run executes the handler for the given 1-based step.
func (d *Definition) Run(ctx context.Context, step int, userID, input string, data map[string]string) (Result, error) {
	if step < 1 || step > len(d.steps) {
		return Result{}, fmt.Errorf("%w: %s step %d", ErrStepOutOfRange, d.Name, step)
	}
	return d.steps[step-1](ctx, userID, input, data), nil
}

// Deps are the external collaborators invoked by flow completion handlers.
type Deps struct {
	SetupPin         func(ctx context.Context, userID, pin string, questionID int, answer string) error
	ResetPin         func(ctx context.Context, userID, answer, newPin string) error
	SecurityQuestion func(ctx context.Context, userID string) (id int, text string, err error)
	VerifyIdentity   func(ctx context.Context, userID, firstName, lastName, idNumber string) (level int, err error)
	Questions        func() []string
}

// Registry holds the flow definitions, built once at engine construction.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry wires the three wizards against the given collaborators.
func NewRegistry(deps Deps) *Registry {
	return &Registry{defs: map[string]*Definition{
		FlowPinSetup: pinSetupFlow(deps),
		FlowIdentity: identityFlow(deps),
		FlowPinReset: pinResetFlow(deps),
	}}
}

// Lookup returns the definition for a flow name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}
