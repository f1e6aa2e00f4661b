package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/internal/randomizer"
	"blockrandomizer/pkg/contract"
)

// fakeSourceDeserializer is a minimal contract.Deserializer backing
// Source's integration tests: frame-mode-only, in-memory, no
// residency bookkeeping beyond what the randomizer core expects.
type fakeSourceDeserializer struct {
	timeline contract.Timeline
}

func frameTimeline(sizes ...int) contract.Timeline {
	var tl contract.Timeline
	var id contract.SequenceID
	for ci, n := range sizes {
		for i := 0; i < n; i++ {
			tl = append(tl, contract.SequenceDescription{ID: id, ChunkID: contract.ChunkID(ci), SampleCount: 1})
			id++
		}
	}
	return tl
}

func (f *fakeSourceDeserializer) SequenceDescriptions(ctx context.Context) (contract.Timeline, error) {
	return f.timeline, nil
}
func (f *fakeSourceDeserializer) StartEpoch(ctx context.Context, cfg contract.EpochConfiguration) error {
	return nil
}
func (f *fakeSourceDeserializer) RequireChunk(ctx context.Context, original contract.ChunkID) error {
	return nil
}
func (f *fakeSourceDeserializer) ReleaseChunk(ctx context.Context, original contract.ChunkID) error {
	return nil
}
func (f *fakeSourceDeserializer) Fetch(ctx context.Context, ids []contract.SequenceID) ([][]contract.SampleData, error) {
	out := make([][]contract.SampleData, len(ids))
	for i, id := range ids {
		out[i] = []contract.SampleData{{Storage: contract.Dense, Bytes: []byte{byte(id)}, Samples: 1}}
	}
	return out, nil
}

func TestSourceNextBatchDrivesRandomizerAndFetch(t *testing.T) {
	ctx := context.Background()
	d := &fakeSourceDeserializer{timeline: frameTimeline(3, 3, 3)}
	core, err := randomizer.New(ctx, d, randomizer.Config{RandomizationRangeInSamples: 4})
	require.NoError(t, err)
	require.NoError(t, core.StartEpoch(ctx, contract.EpochConfiguration{
		Index: 0, TotalSize: contract.FullSweep, MinibatchSize: 2, NumWorkers: 1,
	}))

	src := NewSource(core)
	seen := make(map[byte]bool)
	for {
		records, end, err := src.NextBatch(ctx, 2)
		require.NoError(t, err)
		for _, rec := range records {
			require.Len(t, rec, 1)
			seen[rec[0].Bytes[0]] = true
		}
		if end {
			break
		}
	}
	assert.Len(t, seen, 9)
}

func TestSourceNextBatchTerminalEmpty(t *testing.T) {
	ctx := context.Background()
	d := &fakeSourceDeserializer{timeline: frameTimeline(1)}
	core, err := randomizer.New(ctx, d, randomizer.Config{})
	require.NoError(t, err)
	require.NoError(t, core.StartEpoch(ctx, contract.EpochConfiguration{
		Index: 0, TotalSize: contract.FullSweep, MinibatchSize: 1, NumWorkers: 1,
	}))
	src := NewSource(core)

	records, end, err := src.NextBatch(ctx, 1)
	require.NoError(t, err)
	assert.False(t, end)
	assert.Len(t, records, 1)

	records, end, err = src.NextBatch(ctx, 1)
	require.NoError(t, err)
	assert.True(t, end)
	assert.Empty(t, records)
}
