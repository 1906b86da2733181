package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apexcrm/apex/internal/solver"
)

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()

	if s.cache != nil && !req.Verbose {
		if cached, ok, err := s.cache.Get(ctx, req.Query); err == nil && ok {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			return c.JSON(http.StatusOK, toQueryResponse(cached, true, false))
		} else if err != nil {
			s.logger.Printf("cache lookup failed: %v", err)
		}
	}

	result, err := s.solver.Solve(ctx, solver.SolveRequest{
		Query:    req.Query,
		MaxSteps: req.MaxSteps,
		Verbose:  req.Verbose,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.store.RecordSolve(ctx, currentUserID(c), result); err != nil {
		s.logger.Printf("record solve %s: %v", result.RunID, err)
	}
	if s.cache != nil && result.Termination == solver.TerminationAnswered {
		if err := s.cache.Put(ctx, result); err != nil {
			s.logger.Printf("cache solve %s: %v", result.RunID, err)
		}
	}
	return c.JSON(http.StatusOK, toQueryResponse(result, false, req.Verbose))
}

func (s *Server) handleExamples(c echo.Context) error {
	return c.JSON(http.StatusOK, examplesResponse{Examples: solver.ExampleQueries()})
}

func (s *Server) handleHistory(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		limit = parsed
	}
	items, err := s.store.SolveHistory(c.Request().Context(), currentUserID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}
