package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "running", int64(42), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := st.CreateRun(context.Background(), 42)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, int64(42), run.Seed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatusNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, status, seed, created_at, updated_at FROM runs WHERE").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "seed", "created_at", "updated_at"}).
			AddRow("run-1", "complete", int64(7), now, now))

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, int64(7), run.Seed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStageLifecycle(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO run_stages").
		WithArgs(pgxmock.AnyArg(), "run-1", "grid", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE run_stages SET status").
		WithArgs("complete", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stage, err := st.StartStage(context.Background(), "run-1", "grid")
	require.NoError(t, err)
	assert.Equal(t, model.StageRunning, stage.Status)

	require.NoError(t, st.FinishStage(context.Background(), stage.ID, model.StageComplete, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceClusterRecords(t *testing.T) {
	st, mock := newMockStore(t)

	rec := model.ClusterRecord{
		RunID: "run-1", CellID: 4, Type: model.ClusterMain,
		StationID: "ST1", StationName: "Voice FM",
		Population: 200, Weight: 0.1, InclusionProb: 0.3,
		RoadKM: 2.5, CreatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cluster_records").
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO cluster_records").
		WithArgs("run-1", 4, "main", "ST1", "Voice FM", "", "",
			200.0, 0.1, 0.3, 2.5, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, st.ReplaceClusterRecords(context.Background(), "run-1", []model.ClusterRecord{rec}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListClusterRecords(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT run_id, cell_id, cluster_type").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"run_id", "cell_id", "cluster_type", "station_id", "station_name",
			"admin_code", "admin_name", "population_count", "weight",
			"inclusion_prob", "road_km", "unreachable", "created_at",
		}).
			AddRow("run-1", 4, "main", "ST1", "Voice FM", "D01", "West",
				200.0, 0.1, 0.3, 2.5, false, now).
			AddRow("run-1", 9, "replacement", "", "", "", "",
				50.0, 0.02, 0.06, 7.0, true, now))

	records, err := st.ListClusterRecords(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.ClusterMain, records[0].Type)
	assert.Equal(t, "ST1", records[0].StationID)
	assert.True(t, records[1].Unreachable)
	require.NoError(t, mock.ExpectationsWereMet())
}
