package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the Postgres store uses; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, eris.New("postgres: database_url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	seed       BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cluster_records (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	cell_id          INTEGER NOT NULL,
	cluster_type     TEXT NOT NULL,
	station_id       TEXT,
	station_name     TEXT,
	admin_code       TEXT,
	admin_name       TEXT,
	population_count DOUBLE PRECISION NOT NULL,
	weight           DOUBLE PRECISION NOT NULL,
	inclusion_prob   DOUBLE PRECISION NOT NULL,
	road_km          DOUBLE PRECISION NOT NULL,
	unreachable      BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, cell_id, cluster_type)
);

CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id);
CREATE INDEX IF NOT EXISTS idx_cluster_records_run_id ON cluster_records(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, seed int64) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, seed, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(model.RunStatusRunning), seed, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, seed, created_at, updated_at FROM runs WHERE id = $1`, runID)
	return scanRunPgx(row)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, seed, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT 1`)
	return scanRunPgx(row)
}

func (s *PostgresStore) StartStage(ctx context.Context, runID, name string) (*model.StageRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.StageRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert stage %s", name)
	}
	return &model.StageRecord{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.StageRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishStage(ctx context.Context, stageID string, status model.StageStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_stages SET status = $1, error = $2, ended_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish stage %s", stageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: stage %s not found", stageID)
	}
	return nil
}

func (s *PostgresStore) ReplaceClusterRecords(ctx context.Context, runID string, records []model.ClusterRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM cluster_records WHERE run_id = $1`, runID); err != nil {
		return eris.Wrap(err, "postgres: clear cluster records")
	}
	for _, r := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO cluster_records
				(run_id, cell_id, cluster_type, station_id, station_name,
				 admin_code, admin_name, population_count, weight,
				 inclusion_prob, road_km, unreachable, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			runID, r.CellID, string(r.Type), r.StationID, r.StationName,
			r.AdminCode, r.AdminName, r.Population, r.Weight,
			r.InclusionProb, r.RoadKM, r.Unreachable, r.CreatedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert cluster record %d", r.CellID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit cluster records")
}

func (s *PostgresStore) ListClusterRecords(ctx context.Context, runID string) ([]model.ClusterRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, cell_id, cluster_type, station_id, station_name,
		       admin_code, admin_name, population_count, weight,
		       inclusion_prob, road_km, unreachable, created_at
		FROM cluster_records WHERE run_id = $1
		ORDER BY cluster_type, cell_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cluster records")
	}
	defer rows.Close()

	var records []model.ClusterRecord
	for rows.Next() {
		var (
			r           model.ClusterRecord
			clusterType string
		)
		if err := rows.Scan(
			&r.RunID, &r.CellID, &clusterType, &r.StationID, &r.StationName,
			&r.AdminCode, &r.AdminName, &r.Population, &r.Weight,
			&r.InclusionProb, &r.RoadKM, &r.Unreachable, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cluster record")
		}
		r.Type = model.ClusterType(clusterType)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate cluster records")
}

func scanRunPgx(row pgx.Row) (*model.Run, error) {
	var (
		r      model.Run
		status string
	)
	if err := row.Scan(&r.ID, &status, &r.Seed, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) || eris.Is(err, sql.ErrNoRows) {
			return nil, eris.New("store: run not found")
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}
