package tools

import (
	"context"
	"strings"
)

// MetricSource computes aggregate CRM metrics.
type MetricSource interface {
	PipelineValue(ctx context.Context) (float64, error)
	LeadConversionRate(ctx context.Context) (float64, error)
	WinRate(ctx context.Context) (float64, error)
}

// Metric names accepted by the analytics tool.
const (
	MetricPipelineValue      = "pipeline_value"
	MetricLeadConversionRate = "lead_conversion_rate"
	MetricWinRate            = "win_rate"
)

// AnalyticsTool computes a named aggregate metric over the CRM data.
type AnalyticsTool struct {
	source MetricSource
}

func NewAnalyticsTool(source MetricSource) *AnalyticsTool {
	return &AnalyticsTool{source: source}
}

func (t *AnalyticsTool) Name() string { return "crm_analytics" }

func (t *AnalyticsTool) Description() string {
	return "Compute an aggregate CRM metric: pipeline_value, lead_conversion_rate, or win_rate."
}

func (t *AnalyticsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Metric name",
				"enum":        []string{MetricPipelineValue, MetricLeadConversionRate, MetricWinRate},
			},
		},
		"required": []string{"command"},
	}
}

func (t *AnalyticsTool) Validate(command string) error {
	switch normalizeMetric(command) {
	case MetricPipelineValue, MetricLeadConversionRate, MetricWinRate:
		return nil
	}
	return &unknownMetricError{metric: command}
}

type unknownMetricError struct{ metric string }

func (e *unknownMetricError) Error() string {
	return "unknown metric " + strings.TrimSpace(e.metric) + " (expected pipeline_value, lead_conversion_rate, or win_rate)"
}

func normalizeMetric(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}

func (t *AnalyticsTool) Invoke(ctx context.Context, command string) ToolResult {
	metric := normalizeMetric(command)
	if err := t.Validate(metric); err != nil {
		return Failure(CodeBadCommand, "%v", err)
	}

	var (
		value float64
		err   error
		unit  string
	)
	switch metric {
	case MetricPipelineValue:
		value, err = t.source.PipelineValue(ctx)
		unit = "currency"
	case MetricLeadConversionRate:
		value, err = t.source.LeadConversionRate(ctx)
		unit = "percent"
	case MetricWinRate:
		value, err = t.source.WinRate(ctx)
		unit = "percent"
	}
	if err != nil {
		return Failure(CodeExecution, "compute %s: %v", metric, err)
	}
	return ToolResult{
		Success:     true,
		Data:        map[string]interface{}{"metric": metric, "value": value, "unit": unit},
		ResultCount: 1,
	}
}
