package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/render"
)

var renderOutDir string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render static maps and summary charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderOutDir != "" {
			cfg.Render.OutDir = renderOutDir
		}
		return render.Run(cmd.Context(), cfg)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderOutDir, "out", "", "override render output directory")
	rootCmd.AddCommand(renderCmd)
}
