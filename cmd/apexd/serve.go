package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return server.Run(*cfg)
		},
	}
}
