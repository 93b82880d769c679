package driver

import (
	"strings"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

const capabilitiesPrompt = `<system_capabilities>
- Operate a single, already-open browser page on behalf of an operator
- Read pages through observe_page and search_page before acting on them
- Sign in to vendor portals with the login actions, asking the operator for help when a human is required
- Find invoices and save each one as a file download, a text record or a screenshot
- Report every saved invoice and its artifact path when finishing
</system_capabilities>`

const agentLoopPrompt = `<agent_loop>
You operate in a loop. Each turn you:
1. Read the latest action result
2. Think about what the page shows and what is still missing
3. Call exactly one action
The result of that action is returned to you in the next message. Repeat until every invoice you can find is saved, then call task_completion.

**CRITICAL:** Every response MUST end with exactly one tool call.
</agent_loop>`

const chainOfThoughtPrompt = `<chain_of_thought>
Before each tool call, reason inside <thinking> and </thinking> tags about what the page shows, which invoices remain and why the next action is the right one.
</chain_of_thought>`

const toolCallingPrompt = `<tool_calling>
Tool use is formatted in pure XML:

<tool>
<server_name>local</server_name>
<tool_name>tool_name_here</tool_name>
<arguments>
  <param_key>param_value</param_key>
</arguments>
</tool>

Escape special characters in argument values (&amp; &lt; &gt;) or wrap long text such as invoice content in <![CDATA[ ... ]]>.
Never call a tool that is not listed in available_tools.
</tool_calling>`

const rulesPrompt = `<invoice_rules>
- Prefer the real invoice file: use download_invoice_file with the absolute URL of the PDF when one exists.
- Fall back to save_invoice_content for invoices shown as text, and to screenshot_invoice for invoices only visible as a rendered page.
- Use the vendor's name consistently as vendor_name for every artifact.
- Never type or repeat a password in your thinking or results.
- When a CAPTCHA, two-factor prompt or other human check appears, call pause_for_human with precise instructions.
- An action result starting with "Error" means the action failed; read it and adapt instead of repeating the same call.
</invoice_rules>`

// PromptBuilder assembles the system prompt for a run.
type PromptBuilder struct {
	tools        []tools.Tool
	instructions string
}

// NewPromptBuilder creates a prompt builder with no tools.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithTools sets the tools listed in the prompt.
func (pb *PromptBuilder) WithTools(list []tools.Tool) *PromptBuilder {
	pb.tools = list
	return pb
}

// WithInstructions adds operator-provided instructions ahead of the standing ones.
func (pb *PromptBuilder) WithInstructions(instructions string) *PromptBuilder {
	pb.instructions = instructions
	return pb
}

// Build constructs the system prompt.
func (pb *PromptBuilder) Build() string {
	var b strings.Builder

	if pb.instructions != "" {
		b.WriteString("<custom_instructions>\n")
		b.WriteString(pb.instructions)
		b.WriteString("\n</custom_instructions>\n\n")
	}

	for _, section := range []string{capabilitiesPrompt, agentLoopPrompt, chainOfThoughtPrompt, toolCallingPrompt} {
		b.WriteString(section)
		b.WriteString("\n\n")
	}

	if len(pb.tools) > 0 {
		b.WriteString("<available_tools>\n")
		b.WriteString(tools.FormatToolSchemas(pb.tools))
		b.WriteString("</available_tools>\n\n")
	}

	b.WriteString(rulesPrompt)
	return b.String()
}

// BuildMessages prepends the system prompt to history. System messages
// already in history are skipped.
func BuildMessages(systemPrompt string, history []*types.Message) []*types.Message {
	messages := make([]*types.Message, 0, len(history)+1)
	messages = append(messages, types.NewSystemMessage(systemPrompt))
	for _, msg := range history {
		if msg.Role != types.RoleSystem {
			messages = append(messages, msg)
		}
	}
	return messages
}
