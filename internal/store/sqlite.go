package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	seed       INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now')),
	ended_at   DATETIME
);

CREATE TABLE IF NOT EXISTS cluster_records (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	cell_id          INTEGER NOT NULL,
	cluster_type     TEXT NOT NULL,
	station_id       TEXT,
	station_name     TEXT,
	admin_code       TEXT,
	admin_name       TEXT,
	population_count REAL NOT NULL,
	weight           REAL NOT NULL,
	inclusion_prob   REAL NOT NULL,
	road_km          REAL NOT NULL,
	unreachable      INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, cell_id, cluster_type)
);

CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id);
CREATE INDEX IF NOT EXISTS idx_cluster_records_run_id ON cluster_records(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, seed int64) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, seed, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), seed, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, seed, created_at, updated_at FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, seed, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT 1`)
	return scanRun(row)
}

func (s *SQLiteStore) StartStage(ctx context.Context, runID, name string) (*model.StageRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.StageRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert stage %s", name)
	}
	return &model.StageRecord{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.StageRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishStage(ctx context.Context, stageID string, status model.StageStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_stages SET status = ?, error = ?, ended_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish stage %s", stageID)
	}
	return checkRowsAffected(res, "stage", stageID)
}

func (s *SQLiteStore) ReplaceClusterRecords(ctx context.Context, runID string, records []model.ClusterRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_records WHERE run_id = ?`, runID); err != nil {
		return eris.Wrap(err, "sqlite: clear cluster records")
	}
	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cluster_records
				(run_id, cell_id, cluster_type, station_id, station_name,
				 admin_code, admin_name, population_count, weight,
				 inclusion_prob, road_km, unreachable, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.CellID, string(r.Type), r.StationID, r.StationName,
			r.AdminCode, r.AdminName, r.Population, r.Weight,
			r.InclusionProb, r.RoadKM, boolToInt(r.Unreachable), r.CreatedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert cluster record %d", r.CellID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit cluster records")
}

func (s *SQLiteStore) ListClusterRecords(ctx context.Context, runID string) ([]model.ClusterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, cell_id, cluster_type, station_id, station_name,
		       admin_code, admin_name, population_count, weight,
		       inclusion_prob, road_km, unreachable, created_at
		FROM cluster_records WHERE run_id = ?
		ORDER BY cluster_type, cell_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cluster records")
	}
	defer rows.Close()

	var records []model.ClusterRecord
	for rows.Next() {
		var (
			r           model.ClusterRecord
			clusterType string
			unreachable int
		)
		if err := rows.Scan(
			&r.RunID, &r.CellID, &clusterType, &r.StationID, &r.StationName,
			&r.AdminCode, &r.AdminName, &r.Population, &r.Weight,
			&r.InclusionProb, &r.RoadKM, &unreachable, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster record")
		}
		r.Type = model.ClusterType(clusterType)
		r.Unreachable = unreachable != 0
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate cluster records")
}

func scanRun(row *sql.Row) (*model.Run, error) {
	var (
		r      model.Run
		status string
	)
	if err := row.Scan(&r.ID, &status, &r.Seed, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.New("store: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: %s %s not found", kind, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
