package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/roads"
)

var roadsMaxKM float64

var roadsCmd = &cobra.Command{
	Use:   "roads",
	Short: "Snap sampled clusters to the nearest road",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max-km") {
			cfg.Roads.MaxKM = roadsMaxKM
		}
		return roads.Run(cmd.Context(), cfg)
	},
}

func init() {
	roadsCmd.Flags().Float64Var(&roadsMaxKM, "max-km", 0, "maximum snap distance in km before a cluster is flagged unreachable")
	rootCmd.AddCommand(roadsCmd)
}
