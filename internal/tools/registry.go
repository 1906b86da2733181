package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Failure codes carried on a failed ToolResult.
const (
	CodeToolNotFound = "tool_not_found"
	CodeForbidden    = "forbidden"
	CodeExecution    = "execution_error"
	CodeBadCommand   = "bad_command"
)

// ToolResult is the structured outcome of a tool invocation. When Success is
// false, Data is absent; when true, Error is empty.
type ToolResult struct {
	Success     bool                   `json:"success"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Code        string                 `json:"code,omitempty"`
	ResultCount int                    `json:"result_count,omitempty"`
}

// Failure builds a failed ToolResult with the given code.
func Failure(code string, format string, args ...interface{}) ToolResult {
	return ToolResult{Success: false, Code: code, Error: fmt.Sprintf(format, args...)}
}

// Tool is the capability contract dispatched through the Registry.
type Tool interface {
	// Name returns the unique registry name.
	Name() string

	// Description is shown to the planner when listing capabilities.
	Description() string

	// InputSchema describes the expected command shape.
	InputSchema() map[string]interface{}

	// Validate checks a command against the tool's safety constraints
	// before the underlying capability is ever invoked.
	Validate(command string) error

	// Invoke runs the command. Implementations report failures through the
	// ToolResult, not by panicking.
	Invoke(ctx context.Context, command string) ToolResult
}

// Card is the planner-facing description of a registered tool.
type Card struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Registry maps tool names to capabilities. Registration happens during
// startup; reads are safe for concurrent solves.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// ErrDuplicateTool indicates a name collision during registration.
var ErrDuplicateTool = fmt.Errorf("duplicate tool")

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = fmt.Errorf("tool not found")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name fails.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("invalid tool registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns the registered tool names, sorted for stable prompts.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cards returns planner-facing descriptions of all registered tools.
func (r *Registry) Cards() []Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := make([]Card, 0, len(r.tools))
	for _, t := range r.tools {
		cards = append(cards, Card{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards
}
