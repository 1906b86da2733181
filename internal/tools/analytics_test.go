package tools

import (
	"context"
	"fmt"
	"testing"
)

type fakeMetrics struct {
	pipeline   float64
	conversion float64
	winRate    float64
	err        error
}

func (f *fakeMetrics) PipelineValue(context.Context) (float64, error)      { return f.pipeline, f.err }
func (f *fakeMetrics) LeadConversionRate(context.Context) (float64, error) { return f.conversion, f.err }
func (f *fakeMetrics) WinRate(context.Context) (float64, error)            { return f.winRate, f.err }

func TestAnalyticsToolMetrics(t *testing.T) {
	tool := NewAnalyticsTool(&fakeMetrics{pipeline: 125000, conversion: 12.5, winRate: 40})

	cases := []struct {
		command string
		value   float64
	}{
		{"pipeline_value", 125000},
		{"lead_conversion_rate", 12.5},
		{"win_rate", 40},
		{"  Win_Rate  ", 40},
	}
	for _, tc := range cases {
		result := tool.Invoke(context.Background(), tc.command)
		if !result.Success {
			t.Fatalf("Invoke(%q) failed: %s", tc.command, result.Error)
		}
		if got := result.Data["value"].(float64); got != tc.value {
			t.Fatalf("Invoke(%q) value = %v, want %v", tc.command, got, tc.value)
		}
		if result.ResultCount != 1 {
			t.Fatalf("Invoke(%q) result count = %d, want 1", tc.command, result.ResultCount)
		}
	}
}

func TestAnalyticsToolUnknownMetric(t *testing.T) {
	tool := NewAnalyticsTool(&fakeMetrics{})
	result := tool.Invoke(context.Background(), "revenue_per_rep")
	if result.Success {
		t.Fatal("Invoke accepted an unknown metric")
	}
	if result.Code != CodeBadCommand {
		t.Fatalf("code = %q, want %q", result.Code, CodeBadCommand)
	}
}

func TestAnalyticsToolSourceError(t *testing.T) {
	tool := NewAnalyticsTool(&fakeMetrics{err: fmt.Errorf("connection refused")})
	result := tool.Invoke(context.Background(), "win_rate")
	if result.Success {
		t.Fatal("Invoke succeeded despite source error")
	}
	if result.Code != CodeExecution {
		t.Fatalf("code = %q, want %q", result.Code, CodeExecution)
	}
}
