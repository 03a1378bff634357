package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "maude-cli",
	Short: "Device-problem coding and signal surveillance",
	Long:  "Resolves MAUDE device-problem narratives to IMDRF codes via the Annex vocabulary, then computes prefix-level baselines, thresholds, and per-manufacturer signal series.",
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
