package actions

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/human"
)

// PauseAction hands the browser to the operator until they press Enter,
// e.g. for CAPTCHAs, 2FA codes or SSO pop-ups.
type PauseAction struct {
	deps *Deps
}

func (a *PauseAction) Name() string { return PauseName }

func (a *PauseAction) Description() string {
	return "Pause and let the human operator act in the browser (CAPTCHA, two-factor code, unexpected dialog). " +
		"Describe exactly what they should do. Resumes when they press Enter."
}

func (a *PauseAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"instruction": map[string]interface{}{
				"type":        "string",
				"description": "What the operator should do in the browser",
			},
		},
		[]string{"instruction"},
	)
}

func (a *PauseAction) IsLoopBreaking() bool { return false }

// Execute blocks until the operator resumes. It never returns an error.
func (a *PauseAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName     xml.Name `xml:"arguments"`
		Instruction string   `xml:"instruction"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		a.deps.Logger.Warnf("Failed to create artifact root: %v", err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Pause failed - invalid arguments: %v", err), nil, nil
	}

	a.deps.Console.Notice("AGENT PAUSED")
	a.deps.Console.Field("Instruction", args.Instruction)
	a.deps.Console.Field("Current URL", a.deps.Page.CurrentURL())
	a.deps.Console.Step("Please interact with the browser manually...")
	a.deps.Logger.Infof("Paused for operator: %s", args.Instruction)

	err := a.deps.Terminal.WaitForEnter(ctx, "Press Enter when you're done to continue the agent")
	switch {
	case err == nil:
	case errors.Is(err, human.ErrTimeout):
		a.deps.Logger.Warnf("Operator did not resume: %v", err)
		a.deps.Console.Failure("No response from operator, resuming agent")
		return fmt.Sprintf("Human interaction timed out after %s, continuing with agent", a.deps.Terminal.Timeout()), nil, nil
	default:
		a.deps.Logger.Warnf("Operator input unavailable: %v", err)
		a.deps.Console.Failure("Operator input unavailable: %v", err)
		return fmt.Sprintf("Human interaction ended without confirmation (%v), continuing with agent", err), nil, nil
	}

	a.deps.Console.Step("Resuming agent...")
	return "Human interaction completed, continuing with agent", nil, nil
}
