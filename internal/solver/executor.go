package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/apexcrm/apex/internal/tools"
)

// Executor dispatches planner decisions to registered tools. All failures,
// including panics in a tool, surface as failed ToolResults so the loop
// keeps control.
type Executor struct {
	registry *tools.Registry
	timeout  time.Duration
}

func NewExecutor(registry *tools.Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{registry: registry, timeout: timeout}
}

// Execute runs one decision's tool call under the per-tool timeout.
func (e *Executor) Execute(ctx context.Context, decision PlanDecision) (result tools.ToolResult) {
	tool, err := e.registry.Get(decision.ToolName)
	if err != nil {
		return tools.Failure(tools.CodeToolNotFound, "no tool named %q", decision.ToolName)
	}
	if err := tool.Validate(decision.Command); err != nil {
		return tools.Failure(tools.CodeForbidden, "%v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			result = tools.Failure(tools.CodeExecution, "tool %s panicked: %v", decision.ToolName, r)
		}
	}()

	toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	result = tool.Invoke(toolCtx, decision.Command)
	if result.Success {
		result.Error = ""
		return result
	}
	result.Data = nil
	if result.Code == "" {
		result.Code = tools.CodeExecution
	}
	if result.Error == "" {
		result.Error = fmt.Sprintf("tool %s failed without detail", decision.ToolName)
	}
	return result
}
