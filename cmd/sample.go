package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/sampling"
)

var (
	sampleSize        int
	sampleReplacement int
	sampleSeed        int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw the weighted cluster sample from the frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("size") {
			cfg.Sample.Size = sampleSize
		}
		if cmd.Flags().Changed("replacement") {
			cfg.Sample.ReplacementSize = sampleReplacement
		}
		if cmd.Flags().Changed("seed") {
			cfg.Sample.Seed = sampleSeed
		}
		return sampling.Run(cmd.Context(), cfg)
	},
}

func init() {
	sampleCmd.Flags().IntVar(&sampleSize, "size", 0, "main sample size")
	sampleCmd.Flags().IntVar(&sampleReplacement, "replacement", 0, "replacement sample size")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 0, "random seed")
	rootCmd.AddCommand(sampleCmd)
}
