// Package tools holds the static tool definitions offered to the model and
// the executors that carry them out against the groupware.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// Backend is the groupware surface the executors need.
type Backend interface {
	CreateContact(ctx context.Context, in groupware.ContactInput) (map[string]string, error)
	ListContacts(ctx context.Context) ([]groupware.Contact, error)
	CreateEvent(ctx context.Context, in groupware.EventInput) (map[string]interface{}, error)
	ListEvents(ctx context.Context, startDate, endDate string) ([]groupware.Event, error)
	CreateTask(ctx context.Context, in groupware.TaskInput) (map[string]string, error)
	SendMail(ctx context.Context, in groupware.MailInput) error
}

// KnowledgeSource provides the company knowledge base text.
type KnowledgeSource interface {
	Content() (string, error)
}

// Env is handed to an executor for one call.
type Env struct {
	Backend   Backend
	Knowledge KnowledgeSource
}

// ExecutorFunc runs a tool with validated, defaulted arguments. The returned
// value is marshalled to JSON and becomes the tool result; failures are
// reported inside that value, never as a Go error.
type ExecutorFunc func(ctx context.Context, env Env, args map[string]interface{}) interface{}

// Tool pairs a definition with its executor.
type Tool struct {
	Definition domain.ToolDefinition
	Defaults   map[string]interface{}
	Execute    ExecutorFunc
}

// Name returns the tool's function name.
func (t *Tool) Name() string {
	return t.Definition.Function.Name
}

// Registry stores tools keyed by name and remembers registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// DefaultRegistry is the shared registry holding the builtin tools.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name() == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Execute == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
