package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuleranks/necta-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "necta-cli",
	Short: "NECTA results scraper and ranking tool",
	Long:  "Crawls published NECTA examination result pages (PSLE, CSEE, ACSEE), persists per-school, per-subject and per-student records, and writes ranked reports.",
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
		os.Exit(1)
	}
}
