package solver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/tools"
)

// Observer receives run outcomes for instrumentation. Implementations must
// be safe for concurrent use.
type Observer interface {
	SolveFinished(termination string, steps int, elapsed time.Duration, modelUsed bool)
	FallbackUsed(component string)
	ToolFailed(tool, code string)
	GuardStopped(reason string)
}

type nopObserver struct{}

func (nopObserver) SolveFinished(string, int, time.Duration, bool) {}
func (nopObserver) FallbackUsed(string)                            {}
func (nopObserver) ToolFailed(string, string)                      {}
func (nopObserver) GuardStopped(string)                            {}

// Solver runs the bounded plan-execute-verify loop. One Solver serves many
// concurrent runs; per-run state lives in locals.
type Solver struct {
	cfg      config.SolverConfig
	planner  *Planner
	verifier *Verifier
	executor *Executor
	llm      tools.Completer
	synModel string
	observer Observer
	audit    AuditHook
	logger   *log.Logger
}

// Options configures optional solver collaborators.
type Options struct {
	Heuristic Heuristic
	Observer  Observer
	Audit     AuditHook
	Logger    *log.Logger
}

// New builds a Solver over a tool registry. llm may be nil, in which case
// every run degrades to the keyword fallback.
func New(cfg config.Config, llm tools.Completer, registry *tools.Registry, opts Options) *Solver {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[SOLVER] ", log.LstdFlags)
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	fallback := NewFallbackPlanner(cfg.Solver.RowLimit)
	return &Solver{
		cfg:      cfg.Solver,
		planner:  NewPlanner(llm, cfg.LLM.Routing.Planning, registry, fallback, logger),
		verifier: NewVerifier(llm, cfg.LLM.Routing.Verification, opts.Heuristic, logger),
		executor: NewExecutor(registry, cfg.Solver.ToolTimeout),
		llm:      llm,
		synModel: cfg.LLM.Routing.Synthesis,
		observer: observer,
		audit:    opts.Audit,
		logger:   logger,
	}
}

// Solve resolves one natural-language request. It returns an error only on
// contract violations; model outages, tool failures, and unproductive loops
// all end in a degraded SolveResult instead.
func (s *Solver) Solve(ctx context.Context, req SolveRequest) (SolveResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SolveResult{}, fmt.Errorf("empty query")
	}

	runID := uuid.NewString()
	start := time.Now()
	maxSteps := req.MaxSteps
	if maxSteps <= 0 || maxSteps > s.cfg.MaxSteps {
		maxSteps = s.cfg.MaxSteps
	}

	if NeedsClarification(query) {
		result := s.finish(runID, query, NewMemory(), ClarificationAnswer(), TerminationClarification, "query too vague to act on", false, start)
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.MaxSolveTime)
	defer cancel()

	mem := NewMemory()
	guard := NewLoopGuard(s.cfg.StallLimit)
	modelUsed := false

	for mem.Len() < maxSteps {
		if err := ctx.Err(); err != nil {
			return s.finish(runID, query, mem, s.partialAnswer(ctx, query, mem), TerminationCancelled, err.Error(), modelUsed, start), nil
		}

		planCtx, planCancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
		decision, fromModel := s.planner.Next(planCtx, query, mem)
		planCancel()
		if fromModel {
			modelUsed = true
		} else {
			s.observer.FallbackUsed("planner")
		}
		s.emit(runID, mem.Len()+1, "plan", decision.Rationale)

		if decision.Final {
			return s.finish(runID, query, mem, decision.Answer, TerminationAnswered, decision.Rationale, modelUsed, start), nil
		}

		if reason, stop := guard.Check(decision); stop {
			s.observer.GuardStopped(string(reason))
			return s.finish(runID, query, mem, s.partialAnswer(ctx, query, mem), reason, "loop guard ended the run", modelUsed, start), nil
		}
		if decision.ToolName == "" {
			// Stall counted by the guard; nothing to execute or record.
			continue
		}

		result := s.executor.Execute(ctx, decision)
		rec := mem.Append(decision.ToolName, decision.SubGoal, decision.Command, result)
		if !result.Success {
			s.observer.ToolFailed(decision.ToolName, result.Code)
			s.emit(runID, rec.Step, "execute", fmt.Sprintf("%s failed: %s", decision.ToolName, result.Error))
		} else {
			s.emit(runID, rec.Step, "execute", fmt.Sprintf("%s ok (%d rows)", decision.ToolName, result.ResultCount))
		}
		if s.cfg.Verbose {
			s.logger.Printf("run %s step %d: %s -> success=%v", runID, rec.Step, decision.ToolName, result.Success)
		}

		if mem.Len() >= maxSteps {
			break
		}

		verifyCtx, verifyCancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
		verdict, fromModel := s.verifier.Verify(verifyCtx, query, mem, maxSteps-mem.Len(), maxSteps)
		verifyCancel()
		if fromModel {
			modelUsed = true
		} else {
			s.observer.FallbackUsed("verifier")
		}
		s.emit(runID, rec.Step, "verify", string(verdict.Conclusion))

		if verdict.Conclusion == ConclusionStop {
			return s.finish(runID, query, mem, s.synthesize(ctx, query, mem), TerminationAnswered, verdict.Rationale, modelUsed, start), nil
		}
	}

	return s.finish(runID, query, mem, s.partialAnswer(ctx, query, mem), TerminationStepBudget, fmt.Sprintf("step budget of %d exhausted", maxSteps), modelUsed, start), nil
}

// synthesize turns the history into a final answer, via the model when one
// is reachable and via the summary template otherwise.
func (s *Solver) synthesize(ctx context.Context, query string, mem *Memory) string {
	last, ok := mem.LastSuccessful()
	if !ok {
		if failed, has := mem.Last(); has {
			return fmt.Sprintf("I could not complete that request: %s", failed.Result.Error)
		}
		return "I could not find anything for that request."
	}
	if s.llm != nil {
		prompt := fmt.Sprintf(
			"Answer the user's request using only the gathered data.\n\nRequest: %s\n\nGathered data:\n%s\n\nAnswer concisely for a sales manager.",
			query, mem.ContextSummary())
		synCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
		defer cancel()
		if text, err := s.llm.Generate(synCtx, prompt, s.synModel, nil); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		s.observer.FallbackUsed("synthesis")
	}
	return Summarize(last)
}

// partialAnswer reports what was found before a run ended early.
func (s *Solver) partialAnswer(ctx context.Context, query string, mem *Memory) string {
	if _, ok := mem.LastSuccessful(); ok {
		return s.synthesize(ctx, query, mem)
	}
	return "I was unable to answer that within the allowed steps. Try a more specific question."
}

func (s *Solver) finish(runID, query string, mem *Memory, answer string, reason TerminationReason, rationale string, modelUsed bool, start time.Time) SolveResult {
	elapsed := time.Since(start)
	s.observer.SolveFinished(string(reason), mem.Len(), elapsed, modelUsed)
	s.emit(runID, mem.Len(), "finish", string(reason))

	result := SolveResult{
		RunID:       runID,
		Query:       query,
		Answer:      answer,
		Memory:      mem.Actions(),
		Steps:       mem.Len(),
		Elapsed:     elapsed,
		ModelUsed:   modelUsed,
		Termination: reason,
		Rationale:   rationale,
		CreatedAt:   time.Now().UTC(),
	}
	if last, ok := mem.Last(); ok {
		result.LastCommand = last.Command
	}
	if success, ok := mem.LastSuccessful(); ok {
		result.ResultCount = success.Result.ResultCount
	}
	return result
}

func (s *Solver) emit(runID string, step int, stage, detail string) {
	if s.audit == nil {
		return
	}
	s.audit(AuditEvent{RunID: runID, Step: step, Stage: stage, Detail: detail, Timestamp: time.Now().UTC()})
}
