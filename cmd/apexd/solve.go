package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/llm"
	"github.com/apexcrm/apex/internal/solver"
	"github.com/apexcrm/apex/internal/store"
	"github.com/apexcrm/apex/internal/tools"
)

func solveCmd() *cobra.Command {
	var (
		maxSteps int
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "solve [query]",
		Short: "Answer one query from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			st, err := store.New(ctx, cfg.Storage.Postgres)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer st.Close()

			provider, err := llm.NewProvider(cfg.LLM)
			if err != nil {
				if !errors.Is(err, llm.ErrNotConfigured) {
					return fmt.Errorf("llm provider: %w", err)
				}
				log.Printf("no language model configured, running in fallback mode")
				provider = nil
			}

			registry := tools.NewRegistry()
			regTools := []tools.Tool{
				tools.NewQueryTool(st, cfg.Solver.RowLimit),
				tools.NewAnalyticsTool(st),
			}
			if provider != nil {
				regTools = append(regTools, tools.NewReasoningTool(provider, cfg.LLM.Routing.Reasoning))
			}
			for _, t := range regTools {
				if err := registry.Register(t); err != nil {
					return fmt.Errorf("register tool: %w", err)
				}
			}

			s := solver.New(*cfg, provider, registry, solver.Options{})
			result, err := s.Solve(ctx, solver.SolveRequest{
				Query:    strings.Join(args, " "),
				MaxSteps: maxSteps,
				Verbose:  verbose,
			})
			if err != nil {
				return err
			}
			if !verbose {
				result.Memory = nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "override the step budget")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "include the full action history")
	return cmd
}
