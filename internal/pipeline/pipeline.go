// Package pipeline orchestrates the sampling stages end to end, recording
// each stage and the overall run in the store.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/buffer"
	"github.com/riklinssen/lm-sampling/internal/cluster"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/frame"
	"github.com/riklinssen/lm-sampling/internal/grid"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/population"
	"github.com/riklinssen/lm-sampling/internal/render"
	"github.com/riklinssen/lm-sampling/internal/roads"
	"github.com/riklinssen/lm-sampling/internal/sampling"
	"github.com/riklinssen/lm-sampling/internal/store"
)

// Stage is one pipeline step. Each stage reads the previous stage's output
// files and writes its own, so stages can also be run individually from the
// command line.
type Stage struct {
	Name string
	Run  func(ctx context.Context, cfg *config.Config) error
}

// Stages returns the stages in execution order.
func Stages() []Stage {
	return []Stage{
		{Name: "buffers", Run: buffer.Run},
		{Name: "grid", Run: grid.Run},
		{Name: "population", Run: population.Run},
		{Name: "frame", Run: frame.Run},
		{Name: "sample", Run: sampling.Run},
		{Name: "clusters", Run: cluster.Run},
		{Name: "roads", Run: roads.Run},
		{Name: "render", Run: render.Run},
	}
}

// Runner executes the stage sequence for a single run.
type Runner struct {
	cfg   *config.Config
	store store.Store
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, st store.Store) *Runner {
	return &Runner{cfg: cfg, store: st}
}

// Run executes all stages starting at from ("" means the first stage).
// The run fails fast: a stage error marks the run failed and stops.
func (r *Runner) Run(ctx context.Context, from string) error {
	stages := Stages()
	start := 0
	if from != "" {
		start = -1
		for i, s := range stages {
			if s.Name == from {
				start = i
				break
			}
		}
		if start < 0 {
			return eris.Errorf("pipeline: unknown stage %q", from)
		}
	}

	run, err := r.store.CreateRun(ctx, r.cfg.Sample.Seed)
	if err != nil {
		return eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run", zap.Int64("seed", r.cfg.Sample.Seed), zap.String("from", stages[start].Name))

	setStatus := func(status model.RunStatus) {
		if err := r.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
			log.Warn("pipeline: update run status", zap.Error(err))
		}
	}

	for _, stage := range stages[start:] {
		if err := r.runStage(ctx, run.ID, stage, log); err != nil {
			setStatus(model.RunStatusFailed)
			return err
		}
	}

	setStatus(model.RunStatusComplete)
	log.Info("pipeline: run complete")
	return nil
}

func (r *Runner) runStage(ctx context.Context, runID string, stage Stage, log *zap.Logger) error {
	rec, err := r.store.StartStage(ctx, runID, stage.Name)
	if err != nil {
		return eris.Wrapf(err, "pipeline: start stage %s", stage.Name)
	}

	started := time.Now()
	stageErr := stage.Run(ctx, r.cfg)
	elapsed := time.Since(started)

	status := model.StageComplete
	errMsg := ""
	if stageErr != nil {
		status = model.StageFailed
		errMsg = stageErr.Error()
	}
	if err := r.store.FinishStage(ctx, rec.ID, status, errMsg); err != nil {
		log.Warn("pipeline: finish stage", zap.String("stage", stage.Name), zap.Error(err))
	}

	if stageErr != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", stage.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(stageErr),
		)
		return eris.Wrapf(stageErr, "pipeline: stage %s", stage.Name)
	}

	log.Info("pipeline: stage complete",
		zap.String("stage", stage.Name),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}
