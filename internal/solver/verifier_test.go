package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/apexcrm/apex/internal/tools"
)

func memoryWithSuccess(t *testing.T, count int) *Memory {
	t.Helper()
	mem := NewMemory()
	mem.Append("crm_query", "find leads", "SELECT 1", tools.ToolResult{Success: true, ResultCount: count})
	return mem
}

func TestVerifierStopsWhenBudgetGone(t *testing.T) {
	v := NewVerifier(nil, "verification", nil, testLogger())
	decision, _ := v.Verify(context.Background(), "q", NewMemory(), 0, 10)
	if decision.Conclusion != ConclusionStop {
		t.Fatalf("conclusion = %s, want STOP", decision.Conclusion)
	}
}

func TestVerifierHeuristicStopsOnRows(t *testing.T) {
	v := NewVerifier(nil, "verification", nil, testLogger())
	decision, fromModel := v.Verify(context.Background(), "q", memoryWithSuccess(t, 3), 5, 10)
	if fromModel {
		t.Fatal("nil model reported as used")
	}
	if decision.Conclusion != ConclusionStop {
		t.Fatalf("conclusion = %s, want STOP", decision.Conclusion)
	}
}

func TestVerifierHeuristicContinuesOnEmptyResult(t *testing.T) {
	v := NewVerifier(nil, "verification", nil, testLogger())
	decision, _ := v.Verify(context.Background(), "q", memoryWithSuccess(t, 0), 5, 10)
	if decision.Conclusion != ConclusionContinue {
		t.Fatalf("conclusion = %s, want CONTINUE", decision.Conclusion)
	}
}

func TestVerifierParsesModelVerdict(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"ANALYSIS: The rows answer the request.\nCONCLUSION: STOP"}}
	v := NewVerifier(llm, "verification", nil, testLogger())
	decision, fromModel := v.Verify(context.Background(), "q", memoryWithSuccess(t, 3), 5, 10)
	if !fromModel {
		t.Fatal("valid verdict not taken from model")
	}
	if decision.Conclusion != ConclusionStop {
		t.Fatalf("conclusion = %s, want STOP", decision.Conclusion)
	}
	if decision.Rationale != "The rows answer the request." {
		t.Fatalf("rationale = %q", decision.Rationale)
	}
}

func TestVerifierDegradesOnGarbageVerdict(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"maybe? hard to say"}}
	v := NewVerifier(llm, "verification", nil, testLogger())
	decision, fromModel := v.Verify(context.Background(), "q", memoryWithSuccess(t, 3), 5, 10)
	if fromModel {
		t.Fatal("garbage verdict reported as model-produced")
	}
	if decision.Conclusion != ConclusionStop {
		t.Fatalf("heuristic conclusion = %s, want STOP", decision.Conclusion)
	}
}

func TestVerifierDegradesOnModelError(t *testing.T) {
	llm := &scriptedLLM{errs: []error{fmt.Errorf("timeout")}}
	v := NewVerifier(llm, "verification", nil, testLogger())
	decision, fromModel := v.Verify(context.Background(), "q", NewMemory(), 5, 10)
	if fromModel {
		t.Fatal("failed call reported as model-produced")
	}
	if decision.Conclusion != ConclusionContinue {
		t.Fatalf("conclusion = %s, want CONTINUE", decision.Conclusion)
	}
}

func TestVerifierCustomHeuristic(t *testing.T) {
	always := func(*Memory) bool { return true }
	v := NewVerifier(nil, "verification", always, testLogger())
	decision, _ := v.Verify(context.Background(), "q", NewMemory(), 5, 10)
	if decision.Conclusion != ConclusionStop {
		t.Fatalf("custom heuristic ignored, conclusion = %s", decision.Conclusion)
	}
}
