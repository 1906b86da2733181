package server

import "github.com/apexcrm/apex/internal/solver"

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type queryRequest struct {
	Query    string `json:"query"`
	MaxSteps int    `json:"max_steps,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
}

type queryResponse struct {
	RunID       string                `json:"run_id"`
	Query       string                `json:"query"`
	Answer      string                `json:"answer"`
	ResultCount int                   `json:"result_count"`
	Steps       int                   `json:"steps"`
	ElapsedMS   int64                 `json:"elapsed_ms"`
	ModelUsed   bool                  `json:"model_used"`
	Termination string                `json:"termination"`
	Cached      bool                  `json:"cached"`
	Memory      []solver.ActionRecord `json:"memory,omitempty"`
}

func toQueryResponse(result solver.SolveResult, cached, verbose bool) queryResponse {
	resp := queryResponse{
		RunID:       result.RunID,
		Query:       result.Query,
		Answer:      result.Answer,
		ResultCount: result.ResultCount,
		Steps:       result.Steps,
		ElapsedMS:   result.Elapsed.Milliseconds(),
		ModelUsed:   result.ModelUsed,
		Termination: string(result.Termination),
		Cached:      cached,
	}
	if verbose {
		resp.Memory = result.Memory
	}
	return resp
}

type examplesResponse struct {
	Examples []string `json:"examples"`
}
