package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/grid"
)

var gridCellKM float64

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Tile the buffered area into square grid cells",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gridCellKM > 0 {
			cfg.Grid.CellKM = gridCellKM
		}
		return grid.Run(cmd.Context(), cfg)
	},
}

func init() {
	gridCmd.Flags().Float64Var(&gridCellKM, "cell-km", 0, "override grid cell size in km")
	rootCmd.AddCommand(gridCmd)
}
