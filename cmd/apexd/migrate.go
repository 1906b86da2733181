package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/store"
)

func migrateCmd() *cobra.Command {
	var (
		dir       string
		direction string
		steps     int
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			if err := store.Migrate(dir, dsn, direction, steps); err != nil {
				return err
			}
			fmt.Printf("migrations %s complete\n", direction)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply, 0 for all")
	return cmd
}
