package solver

import "testing"

func TestGuardDetectsImmediateRepeat(t *testing.T) {
	g := NewLoopGuard(2)
	first := PlanDecision{ToolName: "crm_query", Command: "SELECT 1"}
	if reason, stop := g.Check(first); stop {
		t.Fatalf("first decision stopped: %s", reason)
	}
	reason, stop := g.Check(first)
	if !stop {
		t.Fatal("repeated decision not stopped")
	}
	if reason != TerminationLoopDetected {
		t.Fatalf("reason = %s, want %s", reason, TerminationLoopDetected)
	}
}

func TestGuardAllowsDifferentCommands(t *testing.T) {
	g := NewLoopGuard(2)
	if _, stop := g.Check(PlanDecision{ToolName: "crm_query", Command: "SELECT 1"}); stop {
		t.Fatal("first decision stopped")
	}
	if _, stop := g.Check(PlanDecision{ToolName: "crm_query", Command: "SELECT 2"}); stop {
		t.Fatal("different command stopped")
	}
	// The first command again is fine: only immediate repeats loop.
	if _, stop := g.Check(PlanDecision{ToolName: "crm_query", Command: "SELECT 1"}); stop {
		t.Fatal("non-consecutive repeat stopped")
	}
}

func TestGuardDetectsToolOscillation(t *testing.T) {
	g := NewLoopGuard(2)
	steps := []PlanDecision{
		{ToolName: "crm_query", Command: "SELECT 1"},
		{ToolName: "crm_reasoning", Command: "summarize: a"},
		{ToolName: "crm_query", Command: "SELECT 2"},
	}
	for i, d := range steps {
		if reason, stop := g.Check(d); stop {
			t.Fatalf("stopped at step %d: %s", i+1, reason)
		}
	}
	reason, stop := g.Check(PlanDecision{ToolName: "crm_reasoning", Command: "summarize: b"})
	if !stop {
		t.Fatal("alternating two-tool pattern not stopped")
	}
	if reason != TerminationLoopDetected {
		t.Fatalf("reason = %s, want %s", reason, TerminationLoopDetected)
	}
}

func TestGuardAllowsVariedToolSequence(t *testing.T) {
	g := NewLoopGuard(2)
	steps := []PlanDecision{
		{ToolName: "crm_query", Command: "SELECT 1"},
		{ToolName: "crm_reasoning", Command: "summarize: a"},
		{ToolName: "crm_analytics", Command: "win_rate"},
		{ToolName: "crm_reasoning", Command: "explain: b"},
	}
	for i, d := range steps {
		if reason, stop := g.Check(d); stop {
			t.Fatalf("varied sequence stopped at step %d: %s", i+1, reason)
		}
	}
}

func TestGuardStallsAfterLimit(t *testing.T) {
	g := NewLoopGuard(2)
	empty := PlanDecision{}
	if _, stop := g.Check(empty); stop {
		t.Fatal("stopped on first stall")
	}
	if _, stop := g.Check(empty); stop {
		t.Fatal("stopped on second stall")
	}
	reason, stop := g.Check(empty)
	if !stop {
		t.Fatal("third consecutive stall not stopped")
	}
	if reason != TerminationStalled {
		t.Fatalf("reason = %s, want %s", reason, TerminationStalled)
	}
}

func TestGuardToolDecisionResetsStalls(t *testing.T) {
	g := NewLoopGuard(2)
	empty := PlanDecision{}
	g.Check(empty)
	g.Check(empty)
	if _, stop := g.Check(PlanDecision{ToolName: "crm_query", Command: "SELECT 1"}); stop {
		t.Fatal("tool decision stopped after stalls")
	}
	if _, stop := g.Check(empty); stop {
		t.Fatal("stall counter did not reset")
	}
}
