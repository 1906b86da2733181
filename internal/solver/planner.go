package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/apexcrm/apex/internal/tools"
)

// Planner decides the next action for a run. It asks the language model
// first and degrades to the keyword fallback when the model is unavailable
// or returns an unusable decision. Next never returns an error; degradation
// is the error handling.
type Planner struct {
	llm      tools.Completer
	model    string
	registry *tools.Registry
	fallback *FallbackPlanner
	logger   *log.Logger
}

func NewPlanner(llm tools.Completer, model string, registry *tools.Registry, fallback *FallbackPlanner, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	}
	return &Planner{llm: llm, model: model, registry: registry, fallback: fallback, logger: logger}
}

const plannerPromptTemplate = `You are the planner for a sales CRM assistant. You work in steps: each step
you either call one tool or give the final answer.

User request: %s

Available tools:
%s

Actions taken so far:
%s

Respond with a single JSON object and nothing else:
{"final": false, "tool": "<tool name>", "sub_goal": "<what this step achieves>", "command": "<tool command>", "rationale": "<one sentence>"}
or, when the request is fully answered:
{"final": true, "answer": "<answer for the user>", "rationale": "<one sentence>"}

Rules:
- crm_query commands must be a single SQL SELECT statement.
- Do not repeat a command that already ran.
- Prefer finishing once the data needed to answer is in the history.`

// Next produces the next decision. The second return reports whether the
// language model produced the decision (false means fallback).
func (p *Planner) Next(ctx context.Context, query string, mem *Memory) (PlanDecision, bool) {
	if p.llm == nil {
		return p.fallback.Next(query, mem), false
	}

	prompt := fmt.Sprintf(plannerPromptTemplate, query, p.toolCatalog(), mem.ContextSummary())
	raw, err := p.llm.Generate(ctx, prompt, p.model, map[string]interface{}{"temperature": 0.1})
	if err != nil {
		p.logger.Printf("model planning failed, using fallback: %v", err)
		return p.fallback.Next(query, mem), false
	}

	decision, err := parsePlanDecision(raw)
	if err != nil {
		p.logger.Printf("unusable plan from model, using fallback: %v", err)
		return p.fallback.Next(query, mem), false
	}
	if !decision.Final {
		if _, err := p.registry.Get(decision.ToolName); err != nil {
			p.logger.Printf("model selected unknown tool %q, using fallback", decision.ToolName)
			return p.fallback.Next(query, mem), false
		}
	}
	return decision, true
}

func (p *Planner) toolCatalog() string {
	var b strings.Builder
	for _, card := range p.registry.Cards() {
		fmt.Fprintf(&b, "- %s: %s\n", card.Name, card.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parsePlanDecision extracts a PlanDecision from model output, tolerating
// markdown fences and surrounding prose.
func parsePlanDecision(raw string) (PlanDecision, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return PlanDecision{}, fmt.Errorf("no JSON object in plan output")
	}
	var decision PlanDecision
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &decision); err != nil {
		return PlanDecision{}, fmt.Errorf("parse plan: %w", err)
	}
	if err := decision.Validate(); err != nil {
		return PlanDecision{}, err
	}
	return decision, nil
}
