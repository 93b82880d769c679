// Package tools defines the contract between the reasoning agent and the
// actions it may invoke, and the XML format tool calls arrive in.
package tools

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// Tool is a capability the agent can invoke by name.
//
// Example tool call emitted by the LLM:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>screenshot_invoice</tool_name>
//	<arguments>
//	  <vendor_name>Acme Corp</vendor_name>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "download_invoice_file")
	Name() string

	// Description tells the agent when and how to use the tool
	Description() string

	// Schema returns the JSON schema of the tool's arguments
	Schema() map[string]interface{}

	// Execute runs the tool with the XML arguments block.
	// Returns: (result string, metadata map, error). Metadata may be nil.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)

	// IsLoopBreaking reports whether a successful call ends the agent loop
	IsLoopBreaking() bool
}

// ToolCall represents a parsed tool invocation from the LLM's response
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags for unmarshaling.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, prefix...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, suffix...)
	return result
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// FormatToolSchemas renders tools for the system prompt, one block per tool,
// ordered by name.
func FormatToolSchemas(list []Tool) string {
	sorted := make([]Tool, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	var b strings.Builder
	for _, t := range sorted {
		schema, err := json.MarshalIndent(t.Schema(), "", "  ")
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(&b, "<tool_definition>\n<name>%s</name>\n<description>%s</description>\n<parameters>\n%s\n</parameters>\n</tool_definition>\n\n",
			t.Name(), t.Description(), schema)
	}
	return b.String()
}
