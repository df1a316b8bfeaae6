package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/cluster"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Attach admin and station attribution to sampled clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cluster.Run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(clustersCmd)
}
