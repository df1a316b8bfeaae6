package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lm-sampling",
	Short: "Survey cluster sampling around radio station coverage areas",
	Long:  "Builds station coverage buffers, tiles them into a grid, joins population counts, draws a weighted cluster sample, snaps clusters to roads, and renders the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
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
