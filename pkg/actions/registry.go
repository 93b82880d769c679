// Package actions implements the closed set of side-effecting actions the
// agent may invoke to retrieve invoices, and the registry that dispatches them.
//
// Every invocation yields an ActionResult. Errors and panics raised by an
// action are converted into an ActionResult at the registry boundary and
// never reach the caller.
package actions

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/console"
	"github.com/adam-cain/auto-invoice/pkg/logging"
)

// ActionResult is the agent-readable outcome of one invocation.
type ActionResult struct {
	// Content is the single string handed back to the agent.
	Content string

	// Metadata is optional detail for logs and the run summary.
	Metadata map[string]interface{}

	// Done is set when a loop-breaking tool completed.
	Done bool
}

// Registry holds the actions available to the agent and serializes their
// execution. Actions never run concurrently.
type Registry struct {
	mu      sync.Mutex
	tools   map[string]tools.Tool
	order   []string
	log     *logging.Logger
	console *console.Printer
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger, printer *console.Printer) *Registry {
	if log == nil {
		log = logging.Discard("actions")
	}
	return &Registry{
		tools:   make(map[string]tools.Tool),
		log:     log,
		console: printer,
	}
}

// Register adds tools to the registry. Names must be unique.
func (r *Registry) Register(list ...tools.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range list {
		name := t.Name()
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("action %q already registered", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []tools.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]tools.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedNamesLocked()
}

// Invoke runs the named action with its XML arguments block.
func (r *Registry) Invoke(ctx context.Context, name string, argsXML []byte) (result ActionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[name]
	if !ok {
		r.log.Warnf("Unknown action requested: %s", name)
		return ActionResult{Content: fmt.Sprintf("Unknown action %q. Available actions: %s", name, strings.Join(r.sortedNamesLocked(), ", "))}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("Action %s panicked: %v\n%s", name, rec, debug.Stack())
			r.console.Failure("Error executing %s: %v", name, rec)
			result = ActionResult{Content: fmt.Sprintf("Error executing %s: %v", name, rec)}
		}
	}()

	if len(argsXML) == 0 {
		argsXML = []byte("<arguments></arguments>")
	}

	r.log.Debugf("Invoking action %s", name)
	content, meta, err := tool.Execute(ctx, argsXML)
	if err != nil {
		r.log.Warnf("Action %s failed: %v", name, err)
		r.console.Failure("Error executing %s: %v", name, err)
		return ActionResult{Content: fmt.Sprintf("Error executing %s: %v", name, err), Metadata: meta}
	}

	r.log.Infof("Action %s completed", name)
	return ActionResult{Content: content, Metadata: meta, Done: tool.IsLoopBreaking()}
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}
