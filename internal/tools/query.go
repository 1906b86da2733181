package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// RowQuerier executes a read-only SQL statement and returns rows as maps.
type RowQuerier interface {
	ExecuteReadOnly(ctx context.Context, query string, limit int) ([]map[string]interface{}, error)
}

// Statements must start with one of these to be considered read-only.
var readOnlyPrefixes = []string{"SELECT", "WITH"}

// Keywords that indicate a mutating or otherwise unsafe statement. Matched
// on word boundaries so column names like "created_at" pass.
var dangerousKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "EXEC", "EXECUTE", "GRANT", "REVOKE",
}

var dangerousPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(dangerousKeywords, "|") + `)\b`)

// QueryTool runs read-only SQL against the CRM database.
type QueryTool struct {
	db       RowQuerier
	rowLimit int
}

// NewQueryTool builds a QueryTool. rowLimit caps returned rows per query.
func NewQueryTool(db RowQuerier, rowLimit int) *QueryTool {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	return &QueryTool{db: db, rowLimit: rowLimit}
}

func (t *QueryTool) Name() string { return "crm_query" }

func (t *QueryTool) Description() string {
	return "Run a read-only SQL SELECT against the CRM database (leads, contacts, accounts, opportunities, activities)."
}

func (t *QueryTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "A single SQL SELECT statement",
			},
		},
		"required": []string{"command"},
	}
}

// CleanCommand strips markdown fences and trailing semicolons that language
// models habitually wrap around generated SQL.
func CleanCommand(command string) string {
	cleaned := strings.TrimSpace(command)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```sql")
		cleaned = strings.TrimPrefix(cleaned, "```SQL")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	cleaned = strings.TrimSuffix(cleaned, ";")
	return strings.TrimSpace(cleaned)
}

// Validate enforces the read-only contract: the statement must start with
// SELECT or WITH and contain no mutating keyword anywhere.
func (t *QueryTool) Validate(command string) error {
	cleaned := CleanCommand(command)
	if cleaned == "" {
		return fmt.Errorf("empty query")
	}
	upper := strings.ToUpper(cleaned)
	allowed := false
	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(upper, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	if match := dangerousPattern.FindString(cleaned); match != "" {
		return fmt.Errorf("query contains forbidden keyword %q", strings.ToUpper(match))
	}
	return nil
}

func (t *QueryTool) Invoke(ctx context.Context, command string) ToolResult {
	cleaned := CleanCommand(command)
	if err := t.Validate(cleaned); err != nil {
		return Failure(CodeForbidden, "%v", err)
	}
	rows, err := t.db.ExecuteReadOnly(ctx, cleaned, t.rowLimit)
	if err != nil {
		return Failure(CodeExecution, "query failed: %v", err)
	}
	return ToolResult{
		Success:     true,
		Data:        map[string]interface{}{"rows": rows, "query": cleaned},
		ResultCount: len(rows),
	}
}
