package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/actions"
	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

type scriptedProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests [][]*types.Message
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	reply, err := p.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	ch := make(chan *llm.StreamChunk, 1)
	ch <- &llm.StreamChunk{Role: string(reply.Role), Content: reply.Content, Finished: true}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, messages)
	if p.err != nil {
		return nil, p.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.replies) == 0 {
		return types.NewAssistantMessage("<thinking>nothing left</thinking>"), nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return types.NewAssistantMessage(reply), nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{Name: "scripted"} }
func (p *scriptedProvider) GetModel() string               { return "scripted" }

type echoTool struct {
	calls []string
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echo the text argument" }
func (t *echoTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{"text": map[string]interface{}{"type": "string"}}, []string{"text"})
}
func (t *echoTool) IsLoopBreaking() bool { return false }
func (t *echoTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	t.calls = append(t.calls, string(argsXML))
	return "echoed", nil, nil
}

func call(name, args string) string {
	return fmt.Sprintf("<thinking>next step</thinking>\n<tool>\n<server_name>local</server_name>\n<tool_name>%s</tool_name>\n<arguments>%s</arguments>\n</tool>", name, args)
}

func newTestDriver(t *testing.T, p llm.Provider, opts Options) (*Driver, *echoTool) {
	t.Helper()
	echo := &echoTool{}
	reg := actions.NewRegistry(nil, nil)
	require.NoError(t, reg.Register(echo, tools.NewTaskCompletionTool()))
	opts.Counter = &Counter{}
	return New(p, reg, opts), echo
}

func TestRunStopsOnTaskCompletion(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		call("echo", "<text>hi</text>"),
		call("task_completion", "<result>Saved invoices/Acme_20240301_101530.pdf</result>"),
		call("echo", "<text>never</text>"),
	}}
	d, echo := newTestDriver(t, p, Options{})

	res, err := d.Run(context.Background(), "get the invoices")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "Saved invoices/Acme_20240301_101530.pdf", res.Answer)
	assert.Equal(t, 2, res.Turns)
	assert.Len(t, echo.calls, 1)

	second := p.requests[1]
	assert.Equal(t, types.RoleSystem, second[0].Role)
	assert.Equal(t, "get the invoices", second[1].Content)
	assert.Equal(t, "Tool 'echo' result:\nechoed", second[len(second)-1].Content)

	last := res.Events[len(res.Events)-1]
	assert.Equal(t, types.EventTypeFinished, last.Type)
}

func TestRunStopsAtMaxTurns(t *testing.T) {
	var replies []string
	for i := 0; i < 10; i++ {
		replies = append(replies, call("echo", "<text>again</text>"))
	}
	d, echo := newTestDriver(t, &scriptedProvider{replies: replies}, Options{MaxTurns: 3})

	res, err := d.Run(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, StatusMaxTurns, res.Status)
	assert.Equal(t, 3, res.Turns)
	assert.Len(t, echo.calls, 3)
}

func TestRunFeedsBackMissingToolCall(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"I think I am done.",
		call("nope", ""),
		call("task_completion", "<result>done</result>"),
	}}
	d, _ := newTestDriver(t, p, Options{})

	res, err := d.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Turns)

	second := p.requests[1]
	assert.Contains(t, second[len(second)-1].Content, "No tool call found")

	third := p.requests[2]
	assert.Contains(t, third[len(third)-1].Content, `Unknown action "nope"`)
}

func TestRunEmptyCompletionResultIsNotDone(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		call("task_completion", "<result></result>"),
		call("task_completion", "<result>ok</result>"),
	}}
	d, _ := newTestDriver(t, p, Options{})

	res, err := d.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, "ok", res.Answer)
}

func TestRunProviderError(t *testing.T) {
	d, _ := newTestDriver(t, &scriptedProvider{err: errors.New("rate limited")}, Options{})

	res, err := d.Run(context.Background(), "task")
	assert.ErrorContains(t, err, "rate limited")
	assert.Equal(t, StatusFailed, res.Status)
}

func TestRunCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{replies: []string{call("echo", "<text>x</text>")}}
	d, _ := newTestDriver(t, p, Options{WaitBetweenActions: time.Hour})
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res, err := d.Run(ctx, "task")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, res.Status)
}

func TestSystemPromptListsTools(t *testing.T) {
	p := &scriptedProvider{replies: []string{call("task_completion", "<result>ok</result>")}}
	d, _ := newTestDriver(t, p, Options{Instructions: "Only 2024 invoices."})

	_, err := d.Run(context.Background(), "task")
	require.NoError(t, err)

	system := p.requests[0][0].Content
	assert.True(t, strings.HasPrefix(system, "<custom_instructions>\nOnly 2024 invoices."))
	assert.Contains(t, system, "<name>echo</name>")
	assert.Contains(t, system, "<name>task_completion</name>")
}

func TestTrimKeepsTaskAndLatestExchange(t *testing.T) {
	c := &Counter{}
	history := []*types.Message{types.NewUserMessage("task")}
	for i := 0; i < 20; i++ {
		history = append(history,
			types.NewAssistantMessage(strings.Repeat("a", 400)),
			types.NewUserMessage(fmt.Sprintf("result %d", i)))
	}

	trimmed, size := c.Trim("sys", history, 300)
	assert.Equal(t, "task", trimmed[0].Content)
	assert.Equal(t, "result 19", trimmed[len(trimmed)-1].Content)
	assert.Less(t, len(trimmed), len(history))
	assert.LessOrEqual(t, size, 300)

	untouched, _ := c.Trim("sys", history, 0)
	assert.Len(t, untouched, len(history))
}

func TestRenderTask(t *testing.T) {
	task, err := RenderTask(FlowPromptedLogin, TaskParams{Vendor: "Notion", StartURL: "https://www.notion.so/login"})
	require.NoError(t, err)
	assert.Contains(t, task, "Access Notion's customer portal")
	assert.Contains(t, task, "https://www.notion.so/login")
	assert.Contains(t, task, "get_login_credentials")

	task, err = RenderTask(FlowAutoLogin, TaskParams{Vendor: "OpenAI"})
	require.NoError(t, err)
	assert.Contains(t, task, "the vendor's login page")
	assert.NotContains(t, task, "get_login_credentials")

	_, err = RenderTask("manual", TaskParams{Vendor: "x"})
	assert.ErrorContains(t, err, "auto-login, prompted-login")

	_, err = RenderTask(FlowAutoLogin, TaskParams{})
	assert.Error(t, err)
}
