package storage

import (
	"context"

	"neuralfield/internal/model"
)

// Store persists optimization runs and their per-epoch fitness history.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	DeleteRun(ctx context.Context, id string) error
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
}
