package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/riklinssen/lm-sampling/internal/store"
)

var statusRunID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a pipeline run and its cluster record count",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		run, err := st.LatestRun(ctx)
		if statusRunID != "" {
			run, err = st.GetRun(ctx, statusRunID)
		}
		if err != nil {
			return eris.Wrap(err, "load run")
		}

		records, err := st.ListClusterRecords(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "list cluster records")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run":             run,
			"cluster_records": len(records),
		})
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRunID, "run", "", "run ID (default: latest)")
	rootCmd.AddCommand(statusCmd)
}
