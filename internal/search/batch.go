package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/models"
)

// BatchResult pairs a query with its hits.
type BatchResult struct {
	Query *models.Query
	Hits  *models.SearchHits
}

// RunBatch runs queries concurrently, at most parallelism at a time, and
// returns results in input order. The first failing query cancels the rest.
func (e *Engine) RunBatch(ctx context.Context, queries []*models.Query, limit int, model string, parallelism int) ([]BatchResult, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make([]BatchResult, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := e.Search(ctx, &Request{Query: q, Limit: limit, Model: model})
			if err != nil {
				return fmt.Errorf("query %s: %w", q.ID, err)
			}
			results[i] = BatchResult{Query: q, Hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("batch complete", zap.Int("queries", len(queries)), zap.Int("parallelism", parallelism))
	return results, nil
}
