package transform

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"blockrandomizer/pkg/contract"
)

// Decorate transforms one record's per-stream sample data (crop,
// scale, mean-subtract and similar external decoration; §9 "Dynamic
// dispatch over transforms"). It must not mutate its input in place if
// the caller may still read it afterward.
type Decorate func(ctx context.Context, record []contract.SampleData) ([]contract.SampleData, error)

// Stage is a contract.Transformer that pulls from an upstream
// contract.Transformer and applies Decorate to every record. Records of
// one NextBatch call are decorated concurrently (bounded by
// concurrency), but the single-point-of-concurrency rule applies: only
// this layer manages goroutines, Decorate itself must be synchronous.
// Output order always matches input order (§5).
type Stage struct {
	upstream    contract.Transformer
	decorate    Decorate
	concurrency int64
}

// NewStage wraps upstream with a bounded-concurrency decoration step.
// concurrency <= 0 means sequential (no extra goroutines).
func NewStage(upstream contract.Transformer, decorate Decorate, concurrency int) *Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stage{upstream: upstream, decorate: decorate, concurrency: int64(concurrency)}
}

// NextBatch implements contract.Transformer.
func (s *Stage) NextBatch(ctx context.Context, n int) ([][]contract.SampleData, bool, error) {
	records, atEndOfEpoch, err := s.upstream.NextBatch(ctx, n)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return records, atEndOfEpoch, nil
	}

	out := make([][]contract.SampleData, len(records))
	sem := semaphore.NewWeighted(s.concurrency)
	group, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for i, record := range records {
		i, record := i, record
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, false, fmt.Errorf("transform: acquire slot: %w", err)
		}
		group.Go(func() error {
			defer sem.Release(1)
			decorated, err := s.decorate(gctx, record)
			if err != nil {
				return fmt.Errorf("transform: decorate record %d: %w", i, err)
			}
			mu.Lock()
			out[i] = decorated
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, false, err
	}
	return out, atEndOfEpoch, nil
}
