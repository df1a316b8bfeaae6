// Package store persists pipeline run bookkeeping and the final per-cluster
// sampling metadata table. SQLite is the default backend; Postgres is
// available for shared deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/model"
)

// Store is the persistence interface the pipeline runner and exporter use.
type Store interface {
	Migrate(ctx context.Context) error

	CreateRun(ctx context.Context, seed int64) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)

	StartStage(ctx context.Context, runID, name string) (*model.StageRecord, error)
	FinishStage(ctx context.Context, stageID string, status model.StageStatus, errMsg string) error

	ReplaceClusterRecords(ctx context.Context, runID string, records []model.ClusterRecord) error
	ListClusterRecords(ctx context.Context, runID string) ([]model.ClusterRecord, error)

	Close() error
}

// Open builds a Store from configuration and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DSN)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
