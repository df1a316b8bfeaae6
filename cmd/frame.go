package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/frame"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Build the sampling frame with normalized weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		return frame.Run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(frameCmd)
}
