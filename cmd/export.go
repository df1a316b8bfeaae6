package main

import (
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/export"
)

var (
	exportRunID  string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cluster records to CSV/XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		return export.Run(cmd.Context(), cfg, exportRunID, exportFormat)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (default: latest)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "both", "export format: csv, xlsx or both")
	rootCmd.AddCommand(exportCmd)
}
