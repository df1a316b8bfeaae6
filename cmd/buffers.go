package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/buffer"
)

var buffersStations string

var buffersCmd = &cobra.Command{
	Use:   "buffers",
	Short: "Build station points and coverage buffer polygons",
	RunE: func(cmd *cobra.Command, args []string) error {
		if buffersStations != "" {
			cfg.Inputs.Stations = buffersStations
		}
		return buffer.Run(cmd.Context(), cfg)
	},
}

func init() {
	buffersCmd.Flags().StringVar(&buffersStations, "stations", "", "override stations input path")
	rootCmd.AddCommand(buffersCmd)
}
