package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// flowHarness applies step results the way the dispatcher does: merge data,
// move the step, exit on Done.
type flowHarness struct {
	t    *testing.T
	def  *Definition
	step int
	data map[string]string
	done bool
}

func startFlow(t *testing.T, def *Definition, userID string) (*flowHarness, Result) {
	t.Helper()
	h := &flowHarness{t: t, def: def, step: 1, data: map[string]string{}}
	res := h.send(userID, "")
	return h, res
}

func (h *flowHarness) send(userID, input string) Result {
	h.t.Helper()
	if h.done {
		h.t.Fatal("send on completed flow")
	}
	res, err := h.def.Run(context.Background(), h.step, userID, input, h.data)
	if err != nil {
		h.t.Fatalf("Run failed at step %d: %v", h.step, err)
	}
	for k, v := range res.Merge {
		h.data[k] = v
	}
	if res.Done {
		h.done = true
		return res
	}
	h.step += res.Delta
	if h.step < 1 || h.step > h.def.StepCount() {
		h.t.Fatalf("step %d out of range after delta %d", h.step, res.Delta)
	}
	return res
}

func testQuestions() []string {
	return []string{"First pet?", "Birth city?"}
}

func TestPinSetupHappyPath(t *testing.T) {
	var savedPin, savedAnswer string
	var savedQuestion int
	deps := Deps{
		Questions: testQuestions,
		SetupPin: func(_ context.Context, userID, pin string, questionID int, answer string) error {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			savedPin, savedQuestion, savedAnswer = pin, questionID, answer
			return nil
		},
	}
	h, res := startFlow(t, pinSetupFlow(deps), "u1")
	if !strings.Contains(res.Reply, "4-digit PIN") || h.step != 2 {
		t.Fatalf("unexpected entry: step=%d reply=%q", h.step, res.Reply)
	}

	h.send("u1", "4321")
	if h.step != 3 || h.data[DataPin] != "4321" {
		t.Fatalf("expected pin captured at step 3, got step=%d data=%v", h.step, h.data)
	}

	h.send("u1", "4321")
	if h.step != 4 {
		t.Fatalf("expected question menu at step 4, got %d", h.step)
	}

	h.send("u1", "2")
	if h.step != 5 || h.data[DataQuestionID] != "2" {
		t.Fatalf("expected answer prompt at step 5, got step=%d data=%v", h.step, h.data)
	}

	res = h.send("u1", "Lagos")
	if !res.Done {
		t.Fatal("expected terminal step")
	}
	if savedPin != "4321" || savedQuestion != 2 || savedAnswer != "Lagos" {
		t.Fatalf("unexpected persisted values: %q %d %q", savedPin, savedQuestion, savedAnswer)
	}
}

func TestPinSetupValidationReprompts(t *testing.T) {
	deps := Deps{Questions: testQuestions}
	h, _ := startFlow(t, pinSetupFlow(deps), "u1")

	res := h.send("u1", "12")
	if h.step != 2 || res.Delta != 0 {
		t.Fatalf("expected re-prompt without advancing, step=%d delta=%d", h.step, res.Delta)
	}

	h.send("u1", "1234")
	h.send("u1", "1234")
	res = h.send("u1", "nine")
	if h.step != 4 || res.Delta != 0 {
		t.Fatalf("expected question re-prompt, step=%d delta=%d", h.step, res.Delta)
	}
	res = h.send("u1", "99")
	if h.step != 4 {
		t.Fatalf("expected out-of-range question number to re-prompt, step=%d", h.step)
	}
}

func TestPinSetupConfirmMismatchRollsBack(t *testing.T) {
	var savedPin string
	deps := Deps{
		Questions: testQuestions,
		SetupPin: func(_ context.Context, _, pin string, _ int, _ string) error {
			savedPin = pin
			return nil
		},
	}
	h, _ := startFlow(t, pinSetupFlow(deps), "u1")

	h.send("u1", "1234")
	res := h.send("u1", "4321")
	if res.Delta != -1 || h.step != 2 {
		t.Fatalf("expected rollback to capture step, delta=%d step=%d", res.Delta, h.step)
	}
	if h.data[DataPin] != "" {
		t.Fatalf("expected captured pin to be cleared, got %q", h.data[DataPin])
	}

	// Second attempt overwrites the cleared value and completes.
	h.send("u1", "5678")
	h.send("u1", "5678")
	h.send("u1", "1")
	res = h.send("u1", "Rex")
	if !res.Done || savedPin != "5678" {
		t.Fatalf("expected completion with second pin, done=%v saved=%q", res.Done, savedPin)
	}
}

func TestPinSetupCompletionFailureStillTerminates(t *testing.T) {
	deps := Deps{
		Questions: testQuestions,
		SetupPin: func(context.Context, string, string, int, string) error {
			return errors.New("backend down")
		},
	}
	h, _ := startFlow(t, pinSetupFlow(deps), "u1")
	h.send("u1", "1234")
	h.send("u1", "1234")
	h.send("u1", "1")
	res := h.send("u1", "Rex")
	if !res.Done {
		t.Fatal("terminal step must complete the flow even when persistence fails")
	}
	if !strings.Contains(res.Reply, "try") {
		t.Fatalf("expected retry guidance, got %q", res.Reply)
	}
}

func TestIdentityFlow(t *testing.T) {
	var gotFirst, gotLast, gotID string
	deps := Deps{
		VerifyIdentity: func(_ context.Context, _, first, last, idNumber string) (int, error) {
			gotFirst, gotLast, gotID = first, last, idNumber
			if idNumber != "" {
				return 2, nil
			}
			return 1, nil
		},
	}

	h, _ := startFlow(t, identityFlow(deps), "u1")

	res := h.send("u1", "Ada")
	if h.step != 2 || res.Delta != 0 {
		t.Fatalf("single name must re-prompt, step=%d", h.step)
	}

	h.send("u1", "Ada Obi Okafor")
	if h.data[DataFirstName] != "Ada" || h.data[DataLastName] != "Obi Okafor" {
		t.Fatalf("unexpected name split: %v", h.data)
	}

	res = h.send("u1", "NIN-1234567")
	if !res.Done || gotFirst != "Ada" || gotLast != "Obi Okafor" || gotID != "NIN-1234567" {
		t.Fatalf("unexpected completion: done=%v %q %q %q", res.Done, gotFirst, gotLast, gotID)
	}
	if !strings.Contains(res.Reply, "level 2") {
		t.Fatalf("expected elevated level in reply, got %q", res.Reply)
	}
}

func TestIdentityFlowSkipID(t *testing.T) {
	deps := Deps{
		VerifyIdentity: func(_ context.Context, _, _, _, idNumber string) (int, error) {
			if idNumber != "" {
				t.Fatalf("expected empty id number, got %q", idNumber)
			}
			return 1, nil
		},
	}
	h, _ := startFlow(t, identityFlow(deps), "u1")
	h.send("u1", "Ada Obi")
	res := h.send("u1", "Skip")
	if !res.Done || !strings.Contains(res.Reply, "level 1") {
		t.Fatalf("expected skip to complete at level 1, got %q", res.Reply)
	}
}

func TestPinResetFlow(t *testing.T) {
	var gotAnswer, gotPin string
	deps := Deps{
		SecurityQuestion: func(context.Context, string) (int, string, error) {
			return 1, "First pet?", nil
		},
		ResetPin: func(_ context.Context, _, answer, newPin string) error {
			gotAnswer, gotPin = answer, newPin
			return nil
		},
	}

	h, res := startFlow(t, pinResetFlow(deps), "u1")
	if !strings.Contains(res.Reply, "First pet?") {
		t.Fatalf("expected stored question in prompt, got %q", res.Reply)
	}

	h.send("u1", "rex")
	h.send("u1", "1111")

	// Confirmation mismatch returns to the new-PIN step.
	res = h.send("u1", "2222")
	if res.Delta != -1 || h.step != 3 {
		t.Fatalf("expected rollback, delta=%d step=%d", res.Delta, h.step)
	}

	h.send("u1", "3333")
	res = h.send("u1", "3333")
	if !res.Done || gotAnswer != "rex" || gotPin != "3333" {
		t.Fatalf("unexpected reset: done=%v answer=%q pin=%q", res.Done, gotAnswer, gotPin)
	}
}

func TestPinResetWithoutPinAborts(t *testing.T) {
	deps := Deps{
		SecurityQuestion: func(context.Context, string) (int, string, error) {
			return 0, "", errors.New("pin not configured")
		},
	}
	def := pinResetFlow(deps)
	res, err := def.Run(context.Background(), 1, "u1", "", map[string]string{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Done || !strings.Contains(res.Reply, "set up pin") {
		t.Fatalf("expected abort pointing to setup, got %+v", res)
	}
}

func TestPinResetWrongAnswerTerminates(t *testing.T) {
	deps := Deps{
		SecurityQuestion: func(context.Context, string) (int, string, error) { return 1, "First pet?", nil },
		ResetPin: func(context.Context, string, string, string) error {
			return errors.New("security answer does not match")
		},
	}
	h, _ := startFlow(t, pinResetFlow(deps), "u1")
	h.send("u1", "wrong")
	h.send("u1", "1111")
	res := h.send("u1", "1111")
	if !res.Done {
		t.Fatal("expected flow to terminate on answer mismatch")
	}
	if !strings.Contains(res.Reply, "reset pin") {
		t.Fatalf("expected retry guidance, got %q", res.Reply)
	}
}

func TestRunRejectsOutOfRangeStep(t *testing.T) {
	def := identityFlow(Deps{})
	if _, err := def.Run(context.Background(), 0, "u1", "", nil); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange, got %v", err)
	}
	if _, err := def.Run(context.Background(), 9, "u1", "", nil); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange, got %v", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(Deps{Questions: testQuestions})
	for _, name := range []string{FlowPinSetup, FlowIdentity, FlowPinReset} {
		def, ok := r.Lookup(name)
		if !ok || def.Name != name {
			t.Fatalf("missing flow %q", name)
		}
		if def.StepCount() < 3 {
			t.Fatalf("flow %q has too few steps: %d", name, def.StepCount())
		}
	}
	if _, ok := r.Lookup("NOPE"); ok {
		t.Fatal("unexpected flow")
	}
}
