package tools

import (
	"context"
	"encoding/xml"
	"fmt"
)

// TaskCompletionToolName is the name of the tool that ends a run.
const TaskCompletionToolName = "task_completion"

// TaskCompletionTool lets the agent end the run with a summary of the
// invoices it retrieved and any it could not.
type TaskCompletionTool struct{}

// NewTaskCompletionTool creates a new task completion tool
func NewTaskCompletionTool() *TaskCompletionTool {
	return &TaskCompletionTool{}
}

// Name returns the tool's identifier
func (t *TaskCompletionTool) Name() string {
	return TaskCompletionToolName
}

// Description returns a description of what this tool does
func (t *TaskCompletionTool) Description() string {
	return "Finish the run. Call this once every invoice you could find has been saved, " +
		"or when the task cannot progress. The result lists each invoice with the artifact path it was saved to."
}

// Schema returns the JSON schema for the tool's arguments
func (t *TaskCompletionTool) Schema() map[string]interface{} {
	return BaseToolSchema(
		map[string]interface{}{
			"result": map[string]interface{}{
				"type":        "string",
				"description": "Summary of the invoices found and where each was saved.",
			},
		},
		[]string{"result"},
	)
}

// Execute returns the summary unchanged.
func (t *TaskCompletionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Result  string   `xml:"result"`
	}

	if err := UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return "", nil, fmt.Errorf("invalid arguments for %s: %w", TaskCompletionToolName, err)
	}
	if args.Result == "" {
		return "", nil, fmt.Errorf("result cannot be empty")
	}
	return args.Result, nil, nil
}

// IsLoopBreaking returns true because this tool terminates the agent loop
func (t *TaskCompletionTool) IsLoopBreaking() bool {
	return true
}
