package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SectionSource retrieves a single section. *SectionFetcher satisfies it.
type SectionSource interface {
	FetchSection(ctx context.Context, section string) (FetchResult, error)
}

// Aggregator fans a SectionSource out over a fixed list of sections.
type Aggregator struct {
	source         SectionSource
	maxConcurrency int
	logger         *zap.Logger
}

// NewAggregator constructs an Aggregator. maxConcurrency <= 0 starts every fetch at
// once.
func NewAggregator(source SectionSource, maxConcurrency int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{source: source, maxConcurrency: maxConcurrency, logger: logger}
}

// FetchAll fetches every section concurrently and returns the results in the order
// of sections. The first failure fails the whole call: the shared context is
// canceled so outstanding fetches stop early, and no partial results are returned.
func (a *Aggregator) FetchAll(ctx context.Context, sections []string) ([]FetchResult, error) {
	if len(sections) == 0 {
		return nil, errors.New("no sections configured")
	}
	start := time.Now()
	results := make([]FetchResult, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, section := range sections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("section %q not started: %w", section, err)
			}
			res, err := a.source.FetchSection(gctx, section)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("fetch aborted", zap.Int("sections", len(sections)), zap.Error(err))
		return nil, err
	}

	a.logger.Info("all sections fetched",
		zap.Int("sections", len(sections)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}
