package solver

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apexcrm/apex/internal/tools"
)

// Memory is the append-only action history of a single run. It is not safe
// for concurrent use; each run owns its own instance.
type Memory struct {
	actions []ActionRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

// Append records an executed action. Step numbers are assigned here so the
// history stays gapless regardless of what the caller passes in.
func (m *Memory) Append(toolName, subGoal, command string, result tools.ToolResult) ActionRecord {
	rec := ActionRecord{
		Step:      len(m.actions) + 1,
		ToolName:  toolName,
		SubGoal:   subGoal,
		Command:   command,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
	m.actions = append(m.actions, rec)
	return rec
}

// Len returns the number of recorded actions.
func (m *Memory) Len() int { return len(m.actions) }

// Actions returns a copy of the full history.
func (m *Memory) Actions() []ActionRecord {
	out := make([]ActionRecord, len(m.actions))
	copy(out, m.actions)
	return out
}

// Last returns the most recent action, if any.
func (m *Memory) Last() (ActionRecord, bool) {
	if len(m.actions) == 0 {
		return ActionRecord{}, false
	}
	return m.actions[len(m.actions)-1], true
}

// LastSuccessful returns the most recent action whose result succeeded.
func (m *Memory) LastSuccessful() (ActionRecord, bool) {
	for i := len(m.actions) - 1; i >= 0; i-- {
		if m.actions[i].Result.Success {
			return m.actions[i], true
		}
	}
	return ActionRecord{}, false
}

const contextValueLimit = 400

// ContextSummary renders the history as prompt context. Long results are
// truncated so one noisy step cannot crowd out the rest.
func (m *Memory) ContextSummary() string {
	if len(m.actions) == 0 {
		return "No actions taken yet."
	}
	var b strings.Builder
	for _, a := range m.actions {
		status := "ok"
		detail := fmt.Sprintf("%d rows", a.Result.ResultCount)
		if !a.Result.Success {
			status = "failed"
			detail = a.Result.Error
		}
		detail = truncate(detail, contextValueLimit)
		fmt.Fprintf(&b, "Step %d: %s(%s) [%s] %s -> %s\n", a.Step, a.ToolName, truncate(a.Command, contextValueLimit), status, a.SubGoal, detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts on a rune boundary so the summary stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
