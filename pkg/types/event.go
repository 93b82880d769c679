package types

import "time"

// RunEventType defines the kind of step recorded during a run.
type RunEventType string

const (
	EventTypeThinking     RunEventType = "thinking"      // EventTypeThinking records the model's reasoning for a turn.
	EventTypeMessage      RunEventType = "message"       // EventTypeMessage records model output that carried no action.
	EventTypeActionCall   RunEventType = "action_call"   // EventTypeActionCall records an action the model requested.
	EventTypeActionResult RunEventType = "action_result" // EventTypeActionResult records the text returned by an action.
	EventTypeTokenUsage   RunEventType = "token_usage"   // EventTypeTokenUsage records the prompt size sent for a turn.
	EventTypeError        RunEventType = "error"         // EventTypeError records a failure that ended or degraded the run.
	EventTypeFinished     RunEventType = "finished"      // EventTypeFinished records the model declaring the task complete.
)

// RunEvent is one step of a run, kept for the run summary.
type RunEvent struct {
	Time    time.Time    `json:"time"`
	Type    RunEventType `json:"type"`
	Turn    int          `json:"turn"`
	Action  string       `json:"action,omitempty"`
	Content string       `json:"content,omitempty"`
	Tokens  int          `json:"tokens,omitempty"`
}

// NewRunEvent creates an event stamped with the current time.
func NewRunEvent(turn int, typ RunEventType, content string) RunEvent {
	return RunEvent{Time: time.Now(), Type: typ, Turn: turn, Content: content}
}

// WithAction sets the action name and returns the event.
func (e RunEvent) WithAction(name string) RunEvent {
	e.Action = name
	return e
}

// IsTerminal reports whether the event ends a run.
func (e RunEvent) IsTerminal() bool {
	return e.Type == EventTypeFinished || e.Type == EventTypeError
}
