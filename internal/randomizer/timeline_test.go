package randomizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/pkg/contract"
)

func frameTimeline(chunkSizes ...int) contract.Timeline {
	var tl contract.Timeline
	var id contract.SequenceID
	for ci, n := range chunkSizes {
		for i := 0; i < n; i++ {
			tl = append(tl, contract.SequenceDescription{ID: id, ChunkID: contract.ChunkID(ci), SampleCount: 1})
			id++
		}
	}
	return tl
}

func TestIsValidTimelineAcceptsWellFormed(t *testing.T) {
	assert.True(t, isValidTimeline(frameTimeline(3, 2, 4)))
}

func TestIsValidTimelineRejectsEmpty(t *testing.T) {
	assert.False(t, isValidTimeline(nil))
}

func TestIsValidTimelineRejectsNonDenseIDs(t *testing.T) {
	tl := contract.Timeline{
		{ID: 0, ChunkID: 0, SampleCount: 1},
		{ID: 2, ChunkID: 0, SampleCount: 1},
	}
	assert.False(t, isValidTimeline(tl))
}

func TestIsValidTimelineRejectsChunkIDSkip(t *testing.T) {
	tl := contract.Timeline{
		{ID: 0, ChunkID: 0, SampleCount: 1},
		{ID: 1, ChunkID: 2, SampleCount: 1},
	}
	assert.False(t, isValidTimeline(tl))
}

func TestIsValidTimelineRejectsZeroSampleCount(t *testing.T) {
	tl := contract.Timeline{{ID: 0, ChunkID: 0, SampleCount: 0}}
	assert.False(t, isValidTimeline(tl))
}

func TestIsValidTimelineRejectsBadFirstEntry(t *testing.T) {
	tl := contract.Timeline{{ID: 1, ChunkID: 0, SampleCount: 1}}
	assert.False(t, isValidTimeline(tl))
}

func TestBuildChunkIndexOffsetsAndFrameMode(t *testing.T) {
	tl := frameTimeline(3, 2)
	idx := buildChunkIndex(tl)
	require.True(t, idx.frameMode)
	assert.Equal(t, uint64(2), idx.numChunks)
	assert.Equal(t, uint64(5), idx.numSequences)
	assert.Equal(t, uint64(5), idx.numSamples)
	assert.Equal(t, uint64(0), idx.chunkInfo[0].SequenceStart)
	assert.Equal(t, uint64(0), idx.chunkInfo[0].SampleStart)
	assert.Equal(t, uint64(3), idx.chunkInfo[1].SequenceStart)
	assert.Equal(t, uint64(3), idx.chunkInfo[1].SampleStart)
	assert.Equal(t, uint64(5), idx.chunkInfo[2].SequenceStart)
	assert.Equal(t, uint64(5), idx.chunkInfo[2].SampleStart)
}

func TestBuildChunkIndexNonFrameMode(t *testing.T) {
	tl := contract.Timeline{
		{ID: 0, ChunkID: 0, SampleCount: 3},
		{ID: 1, ChunkID: 0, SampleCount: 1},
	}
	idx := buildChunkIndex(tl)
	assert.False(t, idx.frameMode)
	assert.Equal(t, uint64(4), idx.numSamples)
}
