package solver

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/apexcrm/apex/internal/tools"
)

// Heuristic judges run state without a language model. It returns true when
// the run should stop.
type Heuristic func(mem *Memory) bool

// DefaultHeuristic stops once the latest action succeeded and produced
// either rows or a reasoning payload.
func DefaultHeuristic(mem *Memory) bool {
	last, ok := mem.Last()
	if !ok {
		return false
	}
	if !last.Result.Success {
		return false
	}
	if last.Result.ResultCount > 0 {
		return true
	}
	_, hasReasoning := last.Result.Data["reasoning"]
	return hasReasoning
}

// Verifier decides after each executed step whether the run is done. Like
// the planner it degrades: when the model is unreachable the heuristic
// decides.
type Verifier struct {
	llm       tools.Completer
	model     string
	heuristic Heuristic
	logger    *log.Logger
}

func NewVerifier(llm tools.Completer, model string, heuristic Heuristic, logger *log.Logger) *Verifier {
	if heuristic == nil {
		heuristic = DefaultHeuristic
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[VERIFIER] ", log.LstdFlags)
	}
	return &Verifier{llm: llm, model: model, heuristic: heuristic, logger: logger}
}

const verifierPromptTemplate = `You are checking whether a sales CRM assistant has gathered enough to
answer the user.

User request: %s

Actions taken (%d of %d steps used, %d remaining):
%s

Reply in exactly this format:
ANALYSIS: <one or two sentences>
CONCLUSION: STOP or CONTINUE

STOP means the history already answers the request. CONTINUE means another
step is needed and budget remains.`

// Verify returns the verdict and whether the model produced it.
func (v *Verifier) Verify(ctx context.Context, query string, mem *Memory, remaining int, budget int) (VerifyDecision, bool) {
	if remaining <= 0 {
		return VerifyDecision{Conclusion: ConclusionStop, Rationale: "step budget exhausted"}, false
	}
	if v.llm == nil {
		return v.heuristicDecision(mem), false
	}

	prompt := fmt.Sprintf(verifierPromptTemplate, query, mem.Len(), budget, remaining, mem.ContextSummary())
	raw, err := v.llm.Generate(ctx, prompt, v.model, map[string]interface{}{"temperature": 0.0})
	if err != nil {
		v.logger.Printf("model verification failed, using heuristic: %v", err)
		return v.heuristicDecision(mem), false
	}
	decision, err := parseVerifyDecision(raw)
	if err != nil {
		v.logger.Printf("unusable verdict from model, using heuristic: %v", err)
		return v.heuristicDecision(mem), false
	}
	return decision, true
}

func (v *Verifier) heuristicDecision(mem *Memory) VerifyDecision {
	if v.heuristic(mem) {
		return VerifyDecision{Conclusion: ConclusionStop, Rationale: "heuristic: latest result answers the request"}
	}
	return VerifyDecision{Conclusion: ConclusionContinue, Rationale: "heuristic: no usable result yet"}
}

func parseVerifyDecision(raw string) (VerifyDecision, error) {
	var decision VerifyDecision
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "ANALYSIS:"):
			decision.Rationale = strings.TrimSpace(trimmed[len("ANALYSIS:"):])
		case strings.HasPrefix(upper, "CONCLUSION:"):
			verdict := strings.ToUpper(strings.TrimSpace(trimmed[len("CONCLUSION:"):]))
			switch {
			case strings.HasPrefix(verdict, string(ConclusionStop)):
				decision.Conclusion = ConclusionStop
			case strings.HasPrefix(verdict, string(ConclusionContinue)):
				decision.Conclusion = ConclusionContinue
			}
		}
	}
	if decision.Conclusion == "" {
		return VerifyDecision{}, fmt.Errorf("no CONCLUSION in verdict")
	}
	return decision, nil
}
