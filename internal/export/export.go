// Package export writes the cluster record table from the store to CSV and
// XLSX files for survey weighting downstream.
package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/store"
)

var header = []string{
	"run_id", "cell_id", "cluster_type", "station_id", "station_name",
	"admin_code", "admin_name", "population_count", "weight",
	"inclusion_prob", "road_km", "unreachable", "created_at",
}

// Run exports the latest run's cluster records in the requested format,
// "csv", "xlsx", or "both".
func Run(ctx context.Context, cfg *config.Config, runID, format string) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	if runID == "" {
		run, err := st.LatestRun(ctx)
		if err != nil {
			return eris.Wrap(err, "export: no runs recorded")
		}
		runID = run.ID
	}

	records, err := st.ListClusterRecords(ctx, runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return eris.Errorf("export: run %s has no cluster records", runID)
	}

	if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}

	format = strings.ToLower(format)
	wantCSV := format == "csv" || format == "both"
	wantXLSX := format == "xlsx" || format == "both"
	if !wantCSV && !wantXLSX {
		return eris.Errorf("export: unknown format %q (want csv, xlsx or both)", format)
	}

	if wantCSV {
		path := filepath.Join(cfg.Data.OutputDir, "cluster_records.csv")
		if err := WriteCSV(path, records); err != nil {
			return err
		}
		zap.L().Info("export: wrote csv", zap.String("path", path), zap.Int("records", len(records)))
	}
	if wantXLSX {
		path := filepath.Join(cfg.Data.OutputDir, "cluster_records.xlsx")
		if err := WriteXLSX(path, records); err != nil {
			return err
		}
		zap.L().Info("export: wrote xlsx", zap.String("path", path), zap.Int("records", len(records)))
	}
	return nil
}

// WriteCSV writes cluster records to a CSV file with a header row.
func WriteCSV(path string, records []model.ClusterRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range records {
		if err := w.Write(recordStrings(rec)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes cluster records to a single-sheet XLSX workbook.
func WriteXLSX(path string, records []model.ClusterRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("cluster_records")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.RunID)
		row.AddCell().SetInt(rec.CellID)
		row.AddCell().SetString(string(rec.Type))
		row.AddCell().SetString(rec.StationID)
		row.AddCell().SetString(rec.StationName)
		row.AddCell().SetString(rec.AdminCode)
		row.AddCell().SetString(rec.AdminName)
		row.AddCell().SetFloat(rec.Population)
		row.AddCell().SetFloat(rec.Weight)
		row.AddCell().SetFloat(rec.InclusionProb)
		row.AddCell().SetFloat(rec.RoadKM)
		row.AddCell().SetBool(rec.Unreachable)
		row.AddCell().SetString(rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}

func recordStrings(rec model.ClusterRecord) []string {
	return []string{
		rec.RunID,
		strconv.Itoa(rec.CellID),
		string(rec.Type),
		rec.StationID,
		rec.StationName,
		rec.AdminCode,
		rec.AdminName,
		strconv.FormatFloat(rec.Population, 'f', -1, 64),
		strconv.FormatFloat(rec.Weight, 'g', -1, 64),
		strconv.FormatFloat(rec.InclusionProb, 'g', -1, 64),
		strconv.FormatFloat(rec.RoadKM, 'f', 3, 64),
		strconv.FormatBool(rec.Unreachable),
		rec.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
