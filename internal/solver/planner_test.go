package solver

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/apexcrm/apex/internal/tools"
)

type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", fmt.Errorf("no scripted reply %d", i)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type noopQueryTool struct{}

func (noopQueryTool) Name() string                        { return "crm_query" }
func (noopQueryTool) Description() string                 { return "query" }
func (noopQueryTool) InputSchema() map[string]interface{} { return nil }
func (noopQueryTool) Validate(string) error               { return nil }
func (noopQueryTool) Invoke(context.Context, string) tools.ToolResult {
	return tools.ToolResult{Success: true, ResultCount: 1}
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	if err := reg.Register(noopQueryTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestParsePlanDecisionWithFences(t *testing.T) {
	raw := "Here is the plan:\n```json\n{\"final\": false, \"tool\": \"crm_query\", \"sub_goal\": \"find leads\", \"command\": \"SELECT 1\"}\n```"
	decision, err := parsePlanDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decision.ToolName != "crm_query" || decision.Command != "SELECT 1" {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestParsePlanDecisionRejectsInconsistent(t *testing.T) {
	bad := []string{
		`{"final": true}`,
		`{"final": false, "tool": "crm_query"}`,
		`{"final": false, "command": "SELECT 1"}`,
		"not json at all",
	}
	for _, raw := range bad {
		if _, err := parsePlanDecision(raw); err == nil {
			t.Fatalf("parse accepted %q", raw)
		}
	}
}

func TestPlannerDegradesOnModelError(t *testing.T) {
	llm := &scriptedLLM{errs: []error{fmt.Errorf("connection refused")}}
	p := NewPlanner(llm, "planning", testRegistry(t), NewFallbackPlanner(10), testLogger())

	decision, fromModel := p.Next(context.Background(), "show hot leads", NewMemory())
	if fromModel {
		t.Fatal("decision reported as model-produced")
	}
	if decision.ToolName != "crm_query" {
		t.Fatalf("fallback tool = %q", decision.ToolName)
	}
}

func TestPlannerDegradesOnUnknownTool(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"final": false, "tool": "delete_everything", "sub_goal": "x", "command": "y"}`}}
	p := NewPlanner(llm, "planning", testRegistry(t), NewFallbackPlanner(10), testLogger())

	decision, fromModel := p.Next(context.Background(), "show hot leads", NewMemory())
	if fromModel {
		t.Fatal("unknown tool decision accepted from model")
	}
	if decision.ToolName != "crm_query" {
		t.Fatalf("fallback tool = %q", decision.ToolName)
	}
}

func TestPlannerUsesModelDecision(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"final": true, "answer": "There are 4 hot leads.", "rationale": "done"}`}}
	p := NewPlanner(llm, "planning", testRegistry(t), NewFallbackPlanner(10), testLogger())

	decision, fromModel := p.Next(context.Background(), "show hot leads", NewMemory())
	if !fromModel {
		t.Fatal("valid model decision not used")
	}
	if !decision.Final || decision.Answer != "There are 4 hot leads." {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestPlannerNilModelUsesFallback(t *testing.T) {
	p := NewPlanner(nil, "planning", testRegistry(t), NewFallbackPlanner(10), testLogger())
	decision, fromModel := p.Next(context.Background(), "show hot leads", NewMemory())
	if fromModel {
		t.Fatal("nil model reported as used")
	}
	if decision.ToolName == "" && !decision.Final {
		t.Fatalf("fallback produced empty decision: %+v", decision)
	}
}
