package main

import (
	"log"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "apexd",
		Short: "Apex CRM assistant",
		Long:  "Apex answers natural-language questions about your sales CRM data.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.AddCommand(serveCmd(), migrateCmd(), solveCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("apexd: %v", err)
	}
}
