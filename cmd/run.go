package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/pipeline"
	"github.com/riklinssen/lm-sampling/internal/store"
)

var runFrom string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full sampling pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		return pipeline.NewRunner(cfg, st).Run(ctx, runFrom)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFrom, "from", "", "resume from this stage (buffers, grid, population, frame, sample, clusters, roads, render)")
	rootCmd.AddCommand(runCmd)
}
