package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/riklinssen/lm-sampling/internal/model"
)

func sampleRecords() []model.ClusterRecord {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []model.ClusterRecord{
		{
			RunID: "run-1", CellID: 12, Type: model.ClusterMain,
			StationID: "ST1", StationName: "Voice FM",
			AdminCode: "D01", AdminName: "West",
			Population: 520, Weight: 0.13, InclusionProb: 0.39,
			RoadKM: 1.25, CreatedAt: created,
		},
		{
			RunID: "run-1", CellID: 7, Type: model.ClusterReplacement,
			Population: 80, Weight: 0.02, InclusionProb: 0.06,
			RoadKM: 8.4, Unreachable: true, CreatedAt: created,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, WriteCSV(path, sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")

	assert.Equal(t, header, rows[0])
	assert.Equal(t, "12", rows[1][1])
	assert.Equal(t, "main", rows[1][2])
	assert.Equal(t, "Voice FM", rows[1][4])
	assert.Equal(t, "520", rows[1][7])
	assert.Equal(t, "false", rows[1][11])

	assert.Equal(t, "replacement", rows[2][2])
	assert.Equal(t, "true", rows[2][11])
	assert.Equal(t, "8.400", rows[2][10])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRecords()))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := wb.Sheet["cluster_records"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "run_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "main", sheet.Rows[1].Cells[2].String())

	pop, err := sheet.Rows[1].Cells[7].Float()
	require.NoError(t, err)
	assert.Equal(t, 520.0, pop)

	unreachable := sheet.Rows[2].Cells[11]
	assert.True(t, unreachable.Bool())
}
