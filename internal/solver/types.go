package solver

import (
	"fmt"
	"strings"
	"time"

	"github.com/apexcrm/apex/internal/tools"
)

// TerminationReason explains why a solve run ended.
type TerminationReason string

const (
	TerminationAnswered      TerminationReason = "answered"
	TerminationStepBudget    TerminationReason = "step_budget_exceeded"
	TerminationLoopDetected  TerminationReason = "loop_detected"
	TerminationStalled       TerminationReason = "stalled"
	TerminationCancelled     TerminationReason = "cancelled"
	TerminationClarification TerminationReason = "needs_clarification"
)

// PlanDecision is one planner output: either a final answer or a tool call.
type PlanDecision struct {
	Final     bool   `json:"final"`
	Answer    string `json:"answer,omitempty"`
	ToolName  string `json:"tool,omitempty"`
	SubGoal   string `json:"sub_goal,omitempty"`
	Command   string `json:"command,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// Validate checks the decision is internally consistent: a final decision
// carries an answer, a non-final one carries a tool and command.
func (d PlanDecision) Validate() error {
	if d.Final {
		if strings.TrimSpace(d.Answer) == "" {
			return fmt.Errorf("final decision without an answer")
		}
		return nil
	}
	if strings.TrimSpace(d.ToolName) == "" {
		return fmt.Errorf("non-final decision without a tool")
	}
	if strings.TrimSpace(d.Command) == "" {
		return fmt.Errorf("non-final decision without a command")
	}
	return nil
}

// VerifyConclusion is the verifier's verdict for the current run state.
type VerifyConclusion string

const (
	ConclusionStop     VerifyConclusion = "STOP"
	ConclusionContinue VerifyConclusion = "CONTINUE"
)

// VerifyDecision carries the verifier verdict and its reasoning.
type VerifyDecision struct {
	Conclusion VerifyConclusion `json:"conclusion"`
	Rationale  string           `json:"rationale,omitempty"`
}

// ActionRecord is one executed step in a run's memory.
type ActionRecord struct {
	Step      int              `json:"step"`
	ToolName  string           `json:"tool_name"`
	SubGoal   string           `json:"sub_goal"`
	Command   string           `json:"command"`
	Result    tools.ToolResult `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// SolveRequest describes one natural-language query to resolve.
type SolveRequest struct {
	Query    string `json:"query"`
	MaxSteps int    `json:"max_steps,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
}

// SolveResult is the terminal outcome of a run.
type SolveResult struct {
	RunID       string            `json:"run_id"`
	Query       string            `json:"query"`
	Answer      string            `json:"answer"`
	Memory      []ActionRecord    `json:"memory,omitempty"`
	LastCommand string            `json:"last_command,omitempty"`
	ResultCount int               `json:"result_count"`
	Steps       int               `json:"steps"`
	Elapsed     time.Duration     `json:"elapsed"`
	ModelUsed   bool              `json:"model_used"`
	Termination TerminationReason `json:"termination"`
	Rationale   string            `json:"rationale,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AuditEvent is emitted at each state transition when an AuditHook is set.
type AuditEvent struct {
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditHook receives audit events. Hooks must not block.
type AuditHook func(AuditEvent)
