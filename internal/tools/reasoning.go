package tools

import (
	"context"
	"fmt"
	"strings"
)

// Completer generates free-form text for a prompt.
type Completer interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
}

// Reasoning tasks supported over accumulated results.
var reasoningTasks = map[string]string{
	"summarize": "Summarize the following CRM data in two or three sentences for a sales manager.",
	"recommend": "Based on the following CRM data, recommend the next best actions for the sales team.",
	"analyze":   "Analyze the following CRM data and point out notable patterns or risks.",
	"explain":   "Explain what the following CRM data means in plain language.",
}

// ReasoningTool asks the language model to interpret earlier results. It only
// works when a provider is configured; in degraded mode the planner never
// selects it.
type ReasoningTool struct {
	llm   Completer
	model string
}

func NewReasoningTool(llm Completer, model string) *ReasoningTool {
	return &ReasoningTool{llm: llm, model: model}
}

func (t *ReasoningTool) Name() string { return "crm_reasoning" }

func (t *ReasoningTool) Description() string {
	return "Interpret earlier results: summarize, recommend, analyze, or explain, followed by the data as text."
}

func (t *ReasoningTool) InputSchema() map[string]interface{} {
	tasks := make([]string, 0, len(reasoningTasks))
	for task := range reasoningTasks {
		tasks = append(tasks, task)
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "A task keyword followed by the data to interpret",
				"tasks":       tasks,
			},
		},
		"required": []string{"command"},
	}
}

// splitTask separates the leading task keyword from the payload. An
// unrecognized keyword falls back to summarize over the whole command.
func splitTask(command string) (task, payload string) {
	trimmed := strings.TrimSpace(command)
	fields := strings.SplitN(trimmed, " ", 2)
	head := strings.ToLower(strings.TrimSuffix(fields[0], ":"))
	if _, ok := reasoningTasks[head]; ok {
		if len(fields) == 2 {
			return head, strings.TrimSpace(fields[1])
		}
		return head, ""
	}
	return "summarize", trimmed
}

func (t *ReasoningTool) Validate(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("empty reasoning command")
	}
	return nil
}

func (t *ReasoningTool) Invoke(ctx context.Context, command string) ToolResult {
	if err := t.Validate(command); err != nil {
		return Failure(CodeBadCommand, "%v", err)
	}
	if t.llm == nil {
		return Failure(CodeExecution, "reasoning requires a configured language model")
	}
	task, payload := splitTask(command)
	prompt := fmt.Sprintf("%s\n\nData:\n%s", reasoningTasks[task], payload)
	text, err := t.llm.Generate(ctx, prompt, t.model, nil)
	if err != nil {
		return Failure(CodeExecution, "reasoning failed: %v", err)
	}
	return ToolResult{
		Success:     true,
		Data:        map[string]interface{}{"task": task, "reasoning": strings.TrimSpace(text)},
		ResultCount: 1,
	}
}
