package flows

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Data keys accumulated by the wizards.
const (
	DataPin        = "pin"
	DataNewPin     = "newPin"
	DataQuestionID = "questionId"
	DataAnswer     = "answer"
	DataFirstName  = "firstName"
	DataLastName   = "lastName"
	DataIDNumber   = "idNumber"
)

var (
	pinPattern = regexp.MustCompile(`^\d{4}$`)
	idPattern  = regexp.MustCompile(`^[a-zA-Z0-9-]{6,20}$`)
)

const (
	promptEnterPin   = "Enter a 4-digit PIN."
	promptConfirmPin = "Enter the same PIN again to confirm."
	promptAnswer     = "Type your answer (at least 2 characters)."
	promptNewPin     = "Enter your new 4-digit PIN."
	promptIDNumber   = "Enter your ID number, or type \"skip\"."
)

func questionMenu(questions []string) string {
	var b strings.Builder
	b.WriteString("Pick a security question by number:\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// pinSetupFlow: welcome → capture PIN → confirm PIN → pick security
// question → capture answer → persist. A confirmation mismatch rolls back
// to the capture step rather than advancing.
func pinSetupFlow(deps Deps) *Definition {
	return &Definition{
		Name: FlowPinSetup,
		steps: []Handler{
			// Step 1: entry.
			func(context.Context, string, string, map[string]string) Result {
				return Result{
					Reply: "Let's set up your transaction PIN. " + promptEnterPin + "\nType \"cancel\" at any time to stop.",
					Delta: 1,
				}
			},
			// Step 2: capture PIN.
			func(_ context.Context, _, input string, _ map[string]string) Result {
				if !pinPattern.MatchString(input) {
					return Result{Reply: "That doesn't look like a 4-digit PIN. " + promptEnterPin}
				}
				return Result{
					Reply: promptConfirmPin,
					Delta: 1,
					Merge: map[string]string{DataPin: input},
				}
			},
			// Step 3: confirm PIN. Mismatch rolls back to step 2.
			func(_ context.Context, _, input string, data map[string]string) Result {
				if input != data[DataPin] {
					return Result{
						Reply: "The PINs don't match. " + promptEnterPin,
						Delta: -1,
						Merge: map[string]string{DataPin: ""},
					}
				}
				return Result{Reply: questionMenu(deps.Questions()), Delta: 1}
			},
			// Step 4: pick a security question.
			func(_ context.Context, _, input string, _ map[string]string) Result {
				n, err := strconv.Atoi(strings.TrimSpace(input))
				if err != nil || n < 1 || n > len(deps.Questions()) {
					return Result{Reply: "Pick a question by its number.\n" + questionMenu(deps.Questions())}
				}
				return Result{
					Reply: deps.Questions()[n-1] + "\n" + promptAnswer,
					Delta: 1,
					Merge: map[string]string{DataQuestionID: strconv.Itoa(n)},
				}
			},
			// Step 5: capture the answer and persist.
			func(ctx context.Context, userID, input string, data map[string]string) Result {
				answer := strings.TrimSpace(input)
				if len(answer) < 2 {
					return Result{Reply: "That answer is too short. " + promptAnswer}
				}
				questionID, _ := strconv.Atoi(data[DataQuestionID])
				if err := deps.SetupPin(ctx, userID, data[DataPin], questionID, answer); err != nil {
					return Result{
						Reply: "We couldn't save your PIN right now. Please try \"set up pin\" again later.",
						Done:  true,
					}
				}
				return Result{
					Reply: "Your PIN is set. You'll be asked for it before any transaction.",
					Done:  true,
				}
			},
		},
	}
}

// identityFlow: welcome → capture full name → optional ID number → persist
// and elevate permissions.
func identityFlow(deps Deps) *Definition {
	return &Definition{
		Name: FlowIdentity,
		steps: []Handler{
			// Step 1: entry.
			func(context.Context, string, string, map[string]string) Result {
				return Result{
					Reply: "Let's verify your identity. What is your full name (first and last)?",
					Delta: 1,
				}
			},
			// Step 2: capture and split the full name.
			func(_ context.Context, _, input string, _ map[string]string) Result {
				parts := strings.Fields(input)
				if len(parts) < 2 {
					return Result{Reply: "Please enter both your first and last name."}
				}
				return Result{
					Reply: promptIDNumber,
					Delta: 1,
					Merge: map[string]string{
						DataFirstName: parts[0],
						DataLastName:  strings.Join(parts[1:], " "),
					},
				}
			},
			// Step 3: optional ID number, then persist.
			func(ctx context.Context, userID, input string, data map[string]string) Result {
				idNumber := strings.TrimSpace(input)
				if strings.EqualFold(idNumber, "skip") {
					idNumber = ""
				} else if !idPattern.MatchString(idNumber) {
					return Result{Reply: "That ID number doesn't look right. " + promptIDNumber}
				}
				level, err := deps.VerifyIdentity(ctx, userID, data[DataFirstName], data[DataLastName], idNumber)
				if err != nil {
					return Result{
						Reply: "We couldn't verify your identity right now. Please try \"verify identity\" again later.",
						Done:  true,
					}
				}
				return Result{
					Reply: fmt.Sprintf("Thanks %s, your identity is verified (level %d).", data[DataFirstName], level),
					Done:  true,
				}
			},
		},
	}
}

// pinResetFlow: look up the stored security question → capture the answer →
// capture and confirm a new PIN → verify the answer and persist. The answer
// is checked by the PIN collaborator at the end, so a wrong answer costs the
// user the whole wizard, not just one step.
func pinResetFlow(deps Deps) *Definition {
	return &Definition{
		Name: FlowPinReset,
		steps: []Handler{
			// Step 1: entry; fetch the user's stored question.
			func(ctx context.Context, userID, _ string, _ map[string]string) Result {
				_, text, err := deps.SecurityQuestion(ctx, userID)
				if err != nil {
					return Result{
						Reply: "You don't have a PIN yet. Type \"set up pin\" to create one.",
						Done:  true,
					}
				}
				return Result{
					Reply: "To reset your PIN, answer your security question:\n" + text,
					Delta: 1,
				}
			},
			// Step 2: capture the answer.
			func(_ context.Context, _, input string, _ map[string]string) Result {
				answer := strings.TrimSpace(input)
				if len(answer) < 2 {
					return Result{Reply: "That answer is too short. " + promptAnswer}
				}
				return Result{
					Reply: promptNewPin,
					Delta: 1,
					Merge: map[string]string{DataAnswer: answer},
				}
			},
			// Step 3: capture the new PIN.
			func(_ context.Context, _, input string, _ map[string]string) Result {
				if !pinPattern.MatchString(input) {
					return Result{Reply: "That doesn't look like a 4-digit PIN. " + promptNewPin}
				}
				return Result{
					Reply: promptConfirmPin,
					Delta: 1,
					Merge: map[string]string{DataNewPin: input},
				}
			},
			// Step 4: confirm and persist. Mismatch rolls back to step 3.
			func(ctx context.Context, userID, input string, data map[string]string) Result {
				if input != data[DataNewPin] {
					return Result{
						Reply: "The PINs don't match. " + promptNewPin,
						Delta: -1,
						Merge: map[string]string{DataNewPin: ""},
					}
				}
				if err := deps.ResetPin(ctx, userID, data[DataAnswer], input); err != nil {
					return Result{
						Reply: "PIN reset failed. Check your security answer and try \"reset pin\" again.",
						Done:  true,
					}
				}
				return Result{Reply: "Your PIN has been reset.", Done: true}
			},
		},
	}
}
