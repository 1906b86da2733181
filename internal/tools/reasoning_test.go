package tools

import (
	"context"
	"strings"
	"testing"
)

type fakeCompleter struct {
	reply  string
	prompt string
}

func (f *fakeCompleter) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	f.prompt = prompt
	return f.reply, nil
}

func TestReasoningToolTaskRouting(t *testing.T) {
	llm := &fakeCompleter{reply: "Focus on the two hot leads."}
	tool := NewReasoningTool(llm, "analysis")

	result := tool.Invoke(context.Background(), "recommend: 2 hot leads, 1 stalled deal")
	if !result.Success {
		t.Fatalf("Invoke failed: %s", result.Error)
	}
	if result.Data["task"] != "recommend" {
		t.Fatalf("task = %v, want recommend", result.Data["task"])
	}
	if !strings.Contains(llm.prompt, "2 hot leads, 1 stalled deal") {
		t.Fatalf("payload missing from prompt: %q", llm.prompt)
	}
}

func TestReasoningToolDefaultsToSummarize(t *testing.T) {
	tool := NewReasoningTool(&fakeCompleter{reply: "ok"}, "analysis")
	result := tool.Invoke(context.Background(), "pipeline looks thin this quarter")
	if !result.Success {
		t.Fatalf("Invoke failed: %s", result.Error)
	}
	if result.Data["task"] != "summarize" {
		t.Fatalf("task = %v, want summarize", result.Data["task"])
	}
}

func TestReasoningToolWithoutModel(t *testing.T) {
	tool := NewReasoningTool(nil, "analysis")
	result := tool.Invoke(context.Background(), "summarize: anything")
	if result.Success {
		t.Fatal("Invoke succeeded without a model")
	}
}
