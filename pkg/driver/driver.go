// Package driver hosts the agent loop: it sends the conversation to the
// model, executes the one action each reply asks for and feeds the result
// back until the model finishes or the turn limit is reached.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adam-cain/auto-invoice/pkg/actions"
	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/console"
	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/logging"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

// DefaultMaxTurns bounds a run when no limit is configured.
const DefaultMaxTurns = 50

// ErrMaxTurns is returned when the model has not finished within the turn limit.
var ErrMaxTurns = errors.New("turn limit reached before the task was completed")

// Status values reported in a Result.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusMaxTurns  = "max_turns"
)

// Options tune the loop.
type Options struct {
	MaxTurns           int
	MaxContextTokens   int
	WaitBetweenActions time.Duration
	Instructions       string

	// Counter sizes prompts. Defaults to NewCounter for the provider's model.
	Counter *Counter

	Logger  *logging.Logger
	Console *console.Printer
}

// Result describes how a run ended.
type Result struct {
	Status       string
	Answer       string
	Turns        int
	PromptTokens int
	Events       []types.RunEvent
}

// Driver runs the agent loop against one registry.
type Driver struct {
	provider llm.Provider
	registry *actions.Registry
	counter  *Counter
	opts     Options
	log      *logging.Logger
	console  *console.Printer
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a driver. The registry should contain task_completion.
func New(provider llm.Provider, registry *actions.Registry, opts Options) *Driver {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard("driver")
	}
	counter := opts.Counter
	if counter == nil {
		counter = NewCounter(provider.GetModel())
	}
	return &Driver{
		provider: provider,
		registry: registry,
		counter:  counter,
		opts:     opts,
		log:      log,
		console:  opts.Console,
		sleep:    sleepContext,
	}
}

// Run executes task to completion. The returned Result is never nil.
func (d *Driver) Run(ctx context.Context, task string) (*Result, error) {
	res := &Result{}
	system := NewPromptBuilder().
		WithTools(d.registry.Tools()).
		WithInstructions(d.opts.Instructions).
		Build()
	history := []*types.Message{types.NewUserMessage(task)}

	d.log.Infof("Starting run with model %s (max turns %d)", d.provider.GetModel(), d.opts.MaxTurns)

	for turn := 1; turn <= d.opts.MaxTurns; turn++ {
		res.Turns = turn

		var promptTokens int
		history, promptTokens = d.counter.Trim(system, history, d.opts.MaxContextTokens)
		res.PromptTokens += promptTokens
		d.record(res, types.RunEvent{Time: time.Now(), Type: types.EventTypeTokenUsage, Turn: turn, Tokens: promptTokens})

		reply, err := d.provider.Complete(ctx, BuildMessages(system, history))
		if err != nil {
			return d.fail(ctx, res, turn, fmt.Errorf("completion failed: %w", err))
		}
		history = append(history, types.NewAssistantMessage(reply.Content))

		thinking, call, err := tools.ExtractThinkingAndToolCall(reply.Content)
		if thinking != "" {
			d.record(res, types.NewRunEvent(turn, types.EventTypeThinking, thinking))
			d.log.Debugf("Turn %d thinking: %s", turn, thinking)
		}
		if err != nil {
			d.log.Warnf("Turn %d: unparseable tool call: %v", turn, err)
			history = append(history, types.NewUserMessage(fmt.Sprintf(
				"Your tool call could not be parsed: %v\nRespond with exactly one valid tool call.", err)))
			continue
		}
		if call == nil {
			d.record(res, types.NewRunEvent(turn, types.EventTypeMessage, reply.Content))
			history = append(history, types.NewUserMessage(
				"No tool call found in your response. Every response must end with exactly one tool call; call task_completion when you are done."))
			continue
		}

		d.record(res, types.NewRunEvent(turn, types.EventTypeActionCall, string(call.Arguments.InnerXML)).WithAction(call.ToolName))
		d.console.Step("Turn %d: %s", turn, call.ToolName)

		result := d.registry.Invoke(ctx, call.ToolName, call.GetArgumentsXML())
		d.record(res, types.NewRunEvent(turn, types.EventTypeActionResult, result.Content).WithAction(call.ToolName))

		if result.Done {
			res.Status = StatusCompleted
			res.Answer = result.Content
			d.record(res, types.NewRunEvent(turn, types.EventTypeFinished, result.Content))
			d.log.Infof("Run completed after %d turns", turn)
			return res, nil
		}

		history = append(history, types.NewUserMessage(fmt.Sprintf("Tool '%s' result:\n%s", call.ToolName, result.Content)))

		if err := d.sleep(ctx, d.opts.WaitBetweenActions); err != nil {
			return d.fail(ctx, res, turn, err)
		}
	}

	res.Status = StatusMaxTurns
	d.record(res, types.NewRunEvent(res.Turns, types.EventTypeError, ErrMaxTurns.Error()))
	d.log.Warnf("Run stopped after %d turns without completion", res.Turns)
	return res, ErrMaxTurns
}

func (d *Driver) fail(ctx context.Context, res *Result, turn int, err error) (*Result, error) {
	res.Status = StatusFailed
	if ctx.Err() != nil {
		res.Status = StatusCancelled
		err = ctx.Err()
	}
	d.record(res, types.NewRunEvent(turn, types.EventTypeError, err.Error()))
	d.log.Errorf("Run ended on turn %d: %v", turn, err)
	return res, err
}

func (d *Driver) record(res *Result, e types.RunEvent) {
	res.Events = append(res.Events, e)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
