package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "paperdesk",
	Short: "Academic paper tracking and triage pipeline",
	Long:  "Ingests new arXiv papers, scores author lineups against Semantic Scholar, collects human and Claude assessments, and exports the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
