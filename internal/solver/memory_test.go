package solver

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/apexcrm/apex/internal/tools"
)

func TestMemoryStepsAreGapless(t *testing.T) {
	mem := NewMemory()
	mem.Append("crm_query", "a", "SELECT 1", tools.ToolResult{Success: true, ResultCount: 1})
	mem.Append("crm_query", "b", "SELECT 2", tools.ToolResult{Success: false, Error: "boom"})
	mem.Append("crm_analytics", "c", "win_rate", tools.ToolResult{Success: true, ResultCount: 1})

	actions := mem.Actions()
	if len(actions) != 3 {
		t.Fatalf("len = %d, want 3", len(actions))
	}
	for i, a := range actions {
		if a.Step != i+1 {
			t.Fatalf("step %d numbered %d", i+1, a.Step)
		}
	}
}

func TestMemoryLastSuccessfulSkipsFailures(t *testing.T) {
	mem := NewMemory()
	mem.Append("crm_query", "a", "SELECT 1", tools.ToolResult{Success: true, ResultCount: 5})
	mem.Append("crm_query", "b", "SELECT 2", tools.ToolResult{Success: false, Error: "boom"})

	last, ok := mem.LastSuccessful()
	if !ok {
		t.Fatal("no successful action found")
	}
	if last.Step != 1 {
		t.Fatalf("LastSuccessful step = %d, want 1", last.Step)
	}
}

func TestMemoryActionsReturnsCopy(t *testing.T) {
	mem := NewMemory()
	mem.Append("crm_query", "a", "SELECT 1", tools.ToolResult{Success: true})
	actions := mem.Actions()
	actions[0].ToolName = "mutated"
	if fresh := mem.Actions(); fresh[0].ToolName != "crm_query" {
		t.Fatal("Actions exposed internal state")
	}
}

func TestTruncatePreservesValidUTF8(t *testing.T) {
	s := strings.Repeat("é", 300)
	for n := 1; n < 8; n++ {
		out := truncate(s, n)
		if !utf8.ValidString(out) {
			t.Fatalf("truncate(%d) produced invalid UTF-8: %q", n, out)
		}
	}
	if got := truncate("héllo", 100); got != "héllo" {
		t.Fatalf("short string altered: %q", got)
	}
}

func TestContextSummaryTruncatesLongResults(t *testing.T) {
	mem := NewMemory()
	mem.Append("crm_query", "a", strings.Repeat("x", 2000), tools.ToolResult{Success: false, Error: strings.Repeat("e", 2000)})
	summary := mem.ContextSummary()
	if len(summary) > 1200 {
		t.Fatalf("summary not truncated, len = %d", len(summary))
	}
	if !strings.Contains(summary, "...") {
		t.Fatal("expected truncation marker")
	}
}
