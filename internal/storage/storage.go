// Package storage archives ranked runs and reports disk usage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

// ErrRunNotFound is returned when a run or a query within it has no hits.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one archived run.
type Run struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Queries   int       `json:"queries"`
	Hits      int       `json:"hits"`
}

// Archive persists ranked result lists per run and query.
type Archive interface {
	CreateRun(ctx context.Context, runID, model string) error
	SaveRun(ctx context.Context, runID, queryID string, hits *models.SearchHits) error
	LoadRun(ctx context.Context, runID, queryID string) (*models.SearchHits, error)
	ListRuns(ctx context.Context) ([]*Run, error)
	DeleteRun(ctx context.Context, runID string) error
	Close() error
}
