package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goldfish-inc/ebisu/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ebisu",
	Short: "Vessel entity resolution and promotion engine",
	Long:  "Consolidates extracted vessel field values into canonical vessel records, tracks every identifier with confidence and provenance, and flags contradictions for review instead of overwriting them.",
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
