package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/population"
)

var populationInput string

var populationCmd = &cobra.Command{
	Use:   "population",
	Short: "Join population counts onto grid cells",
	RunE: func(cmd *cobra.Command, args []string) error {
		if populationInput != "" {
			cfg.Inputs.Population = populationInput
		}
		return population.Run(cmd.Context(), cfg)
	},
}

func init() {
	populationCmd.Flags().StringVar(&populationInput, "input", "", "override population input path (CSV points or ESRI ASCII raster)")
	rootCmd.AddCommand(populationCmd)
}
