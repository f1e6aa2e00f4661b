package randomizer

import "blockrandomizer/pkg/contract"

// chunkRandomization is the output of the chunk randomizer (C3, §4.2):
// one sweep's shuffled chunk order, each entry annotated with the
// [WindowBegin, WindowEnd) chunk-index half-window a sequence residing
// in it may be relocated within, plus a run-length expansion mapping
// randomized sequence position -> randomized chunk index.
type chunkRandomization struct {
	chunks                []contract.RandomizedChunk // len == numChunks+1, sentinel last
	sequencePositionChunk []uint64                    // len == numSequences
}

// randomizeChunks reorders the numChunks chunks of idx using a PRNG
// seeded with sweep, then derives each chunk's randomization window via
// a monotonic two-pointer sweep bounding how far any sequence may move
// in sample space by rangeInSamples (§4.2; grounded on the original's
// RandomizeChunks in BlockRandomizer.cpp).
func randomizeChunks(idx chunkIndex, sweep uint64, rangeInSamples uint64) chunkRandomization {
	numChunks := idx.numChunks

	order := make([]contract.ChunkID, numChunks)
	for i := range order {
		order[i] = contract.ChunkID(i)
	}
	newPRNG(sweep).shuffleInPlace(order)

	// Sequence and sample starts accumulate over the shuffled order, so
	// they are monotonic in k.
	chunks := make([]contract.RandomizedChunk, numChunks+1)
	var seqStart, sampleStart uint64
	for i, original := range order {
		info, next := idx.chunkInfo[original], idx.chunkInfo[original+1]
		chunks[i] = contract.RandomizedChunk{
			OriginalIndex: original,
			SequenceStart: seqStart,
			SampleStart:   sampleStart,
		}
		seqStart += next.SequenceStart - info.SequenceStart
		sampleStart += next.SampleStart - info.SampleStart
	}
	chunks[numChunks] = contract.RandomizedChunk{
		OriginalIndex: contract.SentinelChunkID(),
		SequenceStart: idx.numSequences,
		SampleStart:   idx.numSamples,
	}

	// Chunk k's sample span is [chunks[k].SampleStart, chunks[k+1].SampleStart).
	sampleEnd := func(k uint64) uint64 { return chunks[k+1].SampleStart }

	half := rangeInSamples / 2
	var windowBegin, windowEnd uint64
	for k := uint64(0); k < numChunks; k++ {
		// Start with the left neighbor's range: might be too early, or
		// might already have more space to give.
		if k == 0 {
			windowBegin, windowEnd = 0, 1
			if windowEnd > numChunks {
				windowEnd = numChunks
			}
		}
		for windowBegin < numChunks && chunks[k].SampleStart-chunks[windowBegin].SampleStart > half {
			windowBegin++
		}
		// A window always contains its own chunk, however tight the range.
		if windowEnd <= k {
			windowEnd = k + 1
		}
		for windowEnd < numChunks && sampleEnd(windowEnd)-chunks[k].SampleStart < half {
			windowEnd++
		}
		chunks[k].WindowBegin = windowBegin
		chunks[k].WindowEnd = windowEnd
	}

	sequencePositionChunk := make([]uint64, idx.numSequences)
	for k := uint64(0); k < numChunks; k++ {
		for pos := chunks[k].SequenceStart; pos < chunks[k+1].SequenceStart; pos++ {
			sequencePositionChunk[pos] = k
		}
	}

	return chunkRandomization{chunks: chunks, sequencePositionChunk: sequencePositionChunk}
}

// chunkForSequencePosition returns the randomized chunk index owning
// randomized sequence position pos.
func (cr chunkRandomization) chunkForSequencePosition(pos uint64) uint64 {
	return cr.sequencePositionChunk[pos]
}

// validate checks the invariants a chunk randomization must hold before
// it is handed to the sequence randomizer: every chunk's window must
// contain the chunk itself (§8, invalid otherwise per
// ErrInvalidChunkBounds).
func (cr chunkRandomization) validate() error {
	numChunks := uint64(len(cr.chunks) - 1)
	for k := uint64(0); k < numChunks; k++ {
		c := cr.chunks[k]
		if c.WindowBegin > k || c.WindowEnd <= k || c.WindowEnd > numChunks {
			return contract.ErrInvalidChunkBounds
		}
	}
	return nil
}
