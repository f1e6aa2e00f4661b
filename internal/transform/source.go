// Package transform adapts the randomizer core onto the pull-based
// contract.Transformer chain (§9 "Dynamic dispatch over transforms")
// and provides a bounded-concurrency decoration stage external
// transforms can be built on top of.
package transform

import (
	"context"
	"fmt"

	"blockrandomizer/internal/randomizer"
	"blockrandomizer/pkg/contract"
)

// Source is the head of the transform chain: it pulls sequence ids
// from the randomizer core and resolves them to sample data through
// the deserializer's Fetch (§5: the only call in the chain allowed to
// block on I/O).
type Source struct {
	core *randomizer.Randomizer
}

// NewSource wraps a randomizer core as the head of a transform chain.
func NewSource(core *randomizer.Randomizer) *Source {
	return &Source{core: core}
}

// NextBatch implements contract.Transformer.
func (s *Source) NextBatch(ctx context.Context, n int) ([][]contract.SampleData, bool, error) {
	b, err := s.core.GetNextSequences(ctx, n)
	if err != nil {
		return nil, false, fmt.Errorf("transform: next sequences: %w", err)
	}
	if len(b.IDs()) == 0 {
		return nil, b.AtEndOfEpoch(), nil
	}
	records, err := s.core.Fetch(ctx, b)
	if err != nil {
		return nil, false, err
	}
	return records, b.AtEndOfEpoch(), nil
}
