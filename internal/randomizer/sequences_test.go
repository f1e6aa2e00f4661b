package randomizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/pkg/contract"
)

func TestRandomizeSequencesIsPermutationOfOriginalIDs(t *testing.T) {
	tl := frameTimeline(3, 4, 2, 5)
	idx := buildChunkIndex(tl)
	cr := randomizeChunks(idx, 3, idx.numSamples)
	require.NoError(t, cr.validate())

	sr := randomizeSequences(tl, idx, cr, 3)
	require.NoError(t, sr.validate(cr))

	seen := make(map[contract.SequenceID]bool)
	for _, s := range sr.slots {
		seen[s.seq.OriginalID] = true
	}
	assert.Len(t, seen, int(idx.numSequences))
}

func TestRandomizeSequencesDeterministic(t *testing.T) {
	tl := frameTimeline(3, 4, 2, 5)
	idx := buildChunkIndex(tl)
	cr := randomizeChunks(idx, 9, idx.numSamples)

	a := randomizeSequences(tl, idx, cr, 9)
	b := randomizeSequences(tl, idx, cr, 9)
	assert.Equal(t, a.slots, b.slots)
}

func TestSequenceValidateCatchesOutOfWindow(t *testing.T) {
	tl := frameTimeline(2, 2)
	idx := buildChunkIndex(tl)
	cr := randomizeChunks(idx, 1, idx.numSamples)
	sr := randomizeSequences(tl, idx, cr, 1)

	// Corrupt one slot's randomized chunk id so it can no longer fall
	// inside the window of the chunk occupying its position.
	sr.slots[0].seq.RandomizedID = contract.ChunkID(idx.numChunks)
	err := sr.validate(cr)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrLogicMangledPermutation)
}
