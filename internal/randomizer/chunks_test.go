package randomizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/pkg/contract"
)

func TestRandomizeChunksProducesValidWindows(t *testing.T) {
	tl := frameTimeline(4, 4, 4, 4, 4)
	idx := buildChunkIndex(tl)
	cr := randomizeChunks(idx, 7, idx.numSamples) // full range: every chunk's window spans everything
	require.NoError(t, cr.validate())

	for k := uint64(0); k < idx.numChunks; k++ {
		assert.LessOrEqual(t, cr.chunks[k].WindowBegin, k)
		assert.Greater(t, cr.chunks[k].WindowEnd, k)
		assert.LessOrEqual(t, cr.chunks[k].WindowEnd, idx.numChunks)
	}
	assert.True(t, contract.IsSentinelChunk(cr.chunks[idx.numChunks].OriginalIndex))
}

func TestRandomizeChunksNarrowRangeStillValid(t *testing.T) {
	tl := frameTimeline(2, 2, 2, 2, 2, 2, 2, 2)
	idx := buildChunkIndex(tl)
	// A tight range still must produce windows containing the chunk itself.
	cr := randomizeChunks(idx, 3, 4)
	require.NoError(t, cr.validate())
}

func TestChunkForSequencePositionCoversAllPositions(t *testing.T) {
	tl := frameTimeline(3, 3, 3)
	idx := buildChunkIndex(tl)
	cr := randomizeChunks(idx, 1, idx.numSamples)
	for pos := uint64(0); pos < idx.numSequences; pos++ {
		c := cr.chunkForSequencePosition(pos)
		assert.Less(t, c, idx.numChunks)
	}
}

func TestValidateCatchesOutOfBoundsWindow(t *testing.T) {
	cr := chunkRandomization{
		chunks: []contract.RandomizedChunk{
			{WindowBegin: 1, WindowEnd: 2}, // begins after itself: invalid
			{WindowBegin: 0, WindowEnd: 2},
			{}, // sentinel
		},
	}
	err := cr.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvalidChunkBounds)
}

func TestDeterministicAcrossCalls(t *testing.T) {
	tl := frameTimeline(3, 3, 3, 3)
	idx := buildChunkIndex(tl)
	a := randomizeChunks(idx, 11, idx.numSamples)
	b := randomizeChunks(idx, 11, idx.numSamples)
	assert.Equal(t, a.chunks, b.chunks)
	assert.Equal(t, a.sequencePositionChunk, b.sequencePositionChunk)
}
