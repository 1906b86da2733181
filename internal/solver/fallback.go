package solver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/apexcrm/apex/internal/tools"
)

// FallbackPlanner maps natural-language queries to tool calls with keyword
// rules. It is total: every query maps to some decision, so the loop keeps
// making progress when no language model is reachable.
type FallbackPlanner struct {
	rowLimit int
}

func NewFallbackPlanner(rowLimit int) *FallbackPlanner {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	return &FallbackPlanner{rowLimit: rowLimit}
}

type fallbackRule struct {
	keywords []string
	tool     string
	subGoal  string
	command  string
}

func (p *FallbackPlanner) rules() []fallbackRule {
	limit := p.rowLimit
	return []fallbackRule{
		{
			keywords: []string{"pipeline value", "total pipeline", "pipeline worth"},
			tool:     "crm_analytics",
			subGoal:  "Compute total pipeline value",
			command:  tools.MetricPipelineValue,
		},
		{
			keywords: []string{"conversion rate", "conversion"},
			tool:     "crm_analytics",
			subGoal:  "Compute lead conversion rate",
			command:  tools.MetricLeadConversionRate,
		},
		{
			keywords: []string{"win rate", "won deals rate"},
			tool:     "crm_analytics",
			subGoal:  "Compute opportunity win rate",
			command:  tools.MetricWinRate,
		},
		{
			keywords: []string{"hot lead"},
			tool:     "crm_query",
			subGoal:  "Find hot leads",
			command:  fmt.Sprintf("SELECT id, name, company, email, status, score FROM leads WHERE status = 'hot' ORDER BY score DESC LIMIT %d", limit),
		},
		{
			keywords: []string{"qualified lead"},
			tool:     "crm_query",
			subGoal:  "Find qualified leads",
			command:  fmt.Sprintf("SELECT id, name, company, email, status, score FROM leads WHERE status = 'qualified' ORDER BY score DESC LIMIT %d", limit),
		},
		{
			keywords: []string{"top opportunit", "biggest deal", "largest deal"},
			tool:     "crm_query",
			subGoal:  "List top opportunities by amount",
			command:  fmt.Sprintf("SELECT id, name, stage, amount, close_date FROM opportunities ORDER BY amount DESC LIMIT %d", limit),
		},
		{
			keywords: []string{"contact"},
			tool:     "crm_query",
			subGoal:  "List contacts with their accounts",
			command:  fmt.Sprintf("SELECT c.id, c.name, c.email, c.title, a.name AS account FROM contacts c LEFT JOIN accounts a ON c.account_id = a.id ORDER BY c.name LIMIT %d", limit),
		},
		{
			keywords: []string{"account", "revenue"},
			tool:     "crm_query",
			subGoal:  "List accounts by revenue",
			command:  fmt.Sprintf("SELECT id, name, industry, annual_revenue FROM accounts ORDER BY annual_revenue DESC NULLS LAST LIMIT %d", limit),
		},
		{
			keywords: []string{"pipeline", "stage"},
			tool:     "crm_query",
			subGoal:  "Break pipeline down by stage",
			command:  "SELECT stage, COUNT(*) AS deals, COALESCE(SUM(amount), 0) AS total FROM opportunities GROUP BY stage ORDER BY total DESC",
		},
		{
			keywords: []string{"activit", "task", "meeting", "call"},
			tool:     "crm_query",
			subGoal:  "List recent activities",
			command:  fmt.Sprintf("SELECT id, type, subject, due_date, completed FROM activities ORDER BY due_date DESC LIMIT %d", limit),
		},
	}
}

// Next applies the first matching rule; when the history already holds a
// successful action the planner finishes with a templated summary.
func (p *FallbackPlanner) Next(query string, mem *Memory) PlanDecision {
	if last, ok := mem.LastSuccessful(); ok {
		return PlanDecision{
			Final:     true,
			Answer:    Summarize(last),
			Rationale: "fallback: summarizing the successful result",
		}
	}
	if last, ok := mem.Last(); ok && !last.Result.Success {
		return PlanDecision{
			Final:     true,
			Answer:    fmt.Sprintf("I could not complete that request: %s", last.Result.Error),
			Rationale: "fallback: previous action failed",
		}
	}

	lower := strings.ToLower(query)
	for _, rule := range p.rules() {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return PlanDecision{
					ToolName:  rule.tool,
					SubGoal:   rule.subGoal,
					Command:   rule.command,
					Rationale: fmt.Sprintf("fallback rule matched %q", kw),
				}
			}
		}
	}
	return PlanDecision{
		ToolName:  "crm_query",
		SubGoal:   "Show recent leads",
		Command:   fmt.Sprintf("SELECT id, name, company, email, status, score FROM leads ORDER BY created_at DESC LIMIT %d", p.rowLimit),
		Rationale: "fallback default: recent leads",
	}
}

// Summarize renders a templated answer from a successful action record.
func Summarize(rec ActionRecord) string {
	if rec.ToolName == "crm_analytics" {
		metric, _ := rec.Result.Data["metric"].(string)
		value := rec.Result.Data["value"]
		unit, _ := rec.Result.Data["unit"].(string)
		label := strings.ReplaceAll(metric, "_", " ")
		switch unit {
		case "percent":
			return fmt.Sprintf("The %s is %.1f%%.", label, toFloat(value))
		case "currency":
			return fmt.Sprintf("The %s is $%.2f.", label, toFloat(value))
		default:
			return fmt.Sprintf("The %s is %v.", label, value)
		}
	}
	if text, ok := rec.Result.Data["reasoning"].(string); ok && text != "" {
		return text
	}
	return fmt.Sprintf("Found %d records matching your query.", rec.Result.ResultCount)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// ExampleQueries are shown to users as starting points.
func ExampleQueries() []string {
	return []string{
		"Show me all hot leads",
		"List qualified leads by score",
		"What are our top opportunities?",
		"Show contacts with their accounts",
		"Which accounts have the highest revenue?",
		"Break down the pipeline by stage",
		"What is our total pipeline value?",
		"What is our lead conversion rate?",
		"What is our win rate?",
		"Show recent activities",
	}
}

var vaguePattern = regexp.MustCompile(`(?i)^(help|what|how|hi|hello|hey|\?+|stuff|things?|info)\b`)

var crmKeywords = []string{
	"lead", "contact", "account", "opportunit", "deal", "pipeline",
	"activit", "revenue", "conversion", "win rate", "customer", "sale",
}

// NeedsClarification reports whether a query is too vague to act on. Short
// queries with a vague opener and no CRM vocabulary get a clarification
// response instead of a guessed answer.
func NeedsClarification(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return true
	}
	if len(trimmed) >= 25 {
		return false
	}
	if !vaguePattern.MatchString(trimmed) {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range crmKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// ClarificationAnswer is returned for queries that fail the vagueness check.
func ClarificationAnswer() string {
	var b strings.Builder
	b.WriteString("Could you be more specific? For example:\n")
	for _, ex := range ExampleQueries()[:4] {
		fmt.Fprintf(&b, "- %s\n", ex)
	}
	return strings.TrimRight(b.String(), "\n")
}
