package solver

// Tool decisions inspected for an alternating two-tool oscillation.
const oscillationWindow = 4

// LoopGuard detects unproductive runs. One guard serves one run.
type LoopGuard struct {
	stallLimit int
	stalls     int
	lastTool   string
	lastCmd    string
	seen       bool
	recent     []string
}

func NewLoopGuard(stallLimit int) *LoopGuard {
	if stallLimit <= 0 {
		stallLimit = 2
	}
	return &LoopGuard{stallLimit: stallLimit}
}

// Check inspects a non-final decision before it executes. A repeat of the
// immediately preceding (tool, command) pair is a loop, as is an A-B-A-B
// alternation between two tools over the last four decisions. Decisions
// that name no tool count as stalls; more than stallLimit in a row ends
// the run. A valid tool decision resets the stall counter.
func (g *LoopGuard) Check(decision PlanDecision) (TerminationReason, bool) {
	if decision.ToolName == "" {
		g.stalls++
		if g.stalls > g.stallLimit {
			return TerminationStalled, true
		}
		return "", false
	}
	g.stalls = 0
	if g.seen && decision.ToolName == g.lastTool && decision.Command == g.lastCmd {
		return TerminationLoopDetected, true
	}
	g.seen = true
	g.lastTool = decision.ToolName
	g.lastCmd = decision.Command

	g.recent = append(g.recent, decision.ToolName)
	if len(g.recent) > oscillationWindow {
		g.recent = g.recent[1:]
	}
	if len(g.recent) == oscillationWindow &&
		g.recent[0] == g.recent[2] && g.recent[1] == g.recent[3] &&
		g.recent[0] != g.recent[1] {
		return TerminationLoopDetected, true
	}
	return "", false
}
