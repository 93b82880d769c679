package tools

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultServerName = "local"
	maxXMLSize        = 10 * 1024 * 1024
)

var toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

// ampersandEntityRegex matches ampersands that already start an XML entity.
var ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// ParseToolCall extracts the first tool call from an LLM response.
//
// Expected format (invoice text may be wrapped in CDATA):
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>save_invoice_content</tool_name>
//	<arguments>
//	  <vendor_name>Acme Corp</vendor_name>
//	  <invoice_content><![CDATA[Invoice #42 ... Total: $42]]></invoice_content>
//	</arguments>
//	</tool>
//
// Returns the parsed ToolCall and the response text with the call removed.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	match := toolRegex.FindString(text)
	if match == "" {
		return nil, text, fmt.Errorf("no tool call found in text")
	}
	toolXML := strings.TrimSpace(match)

	var toolCall ToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &toolCall); err != nil {
		snippet := toolXML
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet)
	}

	toolCall.ToolName = strings.TrimSpace(toolCall.ToolName)
	if toolCall.ToolName == "" {
		return nil, text, fmt.Errorf("tool_name is required in tool call")
	}
	if toolCall.ServerName == "" {
		toolCall.ServerName = defaultServerName
	}

	remaining := strings.TrimSpace(strings.Replace(text, match, "", 1))
	return &toolCall, remaining, nil
}

// ExtractThinkingAndToolCall splits a response into the reasoning before
// the tool call and the call itself. A response without a tool call is
// returned whole as thinking.
func ExtractThinkingAndToolCall(text string) (thinking string, toolCall *ToolCall, err error) {
	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), nil, nil
	}

	thinking = strings.TrimSpace(text[:loc[0]])
	toolCall, _, err = ParseToolCall(text[loc[0]:loc[1]])
	return thinking, toolCall, err
}

// HasToolCall checks if the text contains a tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// UnmarshalXMLWithFallback unmarshals XML, retrying once with bare
// ampersands escaped. LLMs frequently emit raw & in URLs and invoice text.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities.
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityStarts := make(map[int]bool)
	for _, m := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityStarts[m[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityStarts[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}
	return []byte(result.String())
}
