package randomizer

import "blockrandomizer/pkg/contract"

// chunkIndex is the one-time derivation of ChunkInformation performed
// by the chunk indexer (C2, §4.1): a single pass over the timeline
// computing per-chunk sample/sequence offsets and a sentinel, plus the
// totals and frame-mode detection.
type chunkIndex struct {
	chunkInfo    []contract.ChunkInformation // len == numChunks+1, sentinel last
	numChunks    uint64
	numSequences uint64
	numSamples   uint64
	frameMode    bool
}

// isValidTimeline checks the §3 invariants in one pass:
//   - ids are a dense 0-based range in timeline order
//   - chunk_id is non-decreasing and advances by 0 or 1 between
//     adjacent entries
//   - sample_count >= 1
func isValidTimeline(t contract.Timeline) bool {
	if len(t) == 0 {
		return false
	}
	var prevID contract.SequenceID
	var prevChunk contract.ChunkID
	for i, cur := range t {
		if cur.SampleCount == 0 {
			return false
		}
		if i == 0 {
			if cur.ID != 0 || cur.ChunkID != 0 {
				return false
			}
			prevID, prevChunk = cur.ID, cur.ChunkID
			continue
		}
		if cur.ID != prevID+1 {
			return false
		}
		if cur.ChunkID != prevChunk && cur.ChunkID != prevChunk+1 {
			return false
		}
		prevID, prevChunk = cur.ID, cur.ChunkID
	}
	return true
}

// buildChunkIndex scans the timeline once (§4.1). It assumes the
// caller already validated the timeline with isValidTimeline.
func buildChunkIndex(t contract.Timeline) chunkIndex {
	last := t[len(t)-1]
	numSequences := uint64(last.ID) + 1
	numChunks := uint64(last.ChunkID) + 1

	info := make([]contract.ChunkInformation, numChunks+1)
	for i := range info {
		info[i] = contract.ChunkInformation{SequenceStart: ^uint64(0), SampleStart: ^uint64(0)}
	}

	var numSamples uint64
	var maxSampleCount uint64
	for _, seq := range t {
		ci := &info[seq.ChunkID]
		if ci.SequenceStart == ^uint64(0) {
			ci.SequenceStart = uint64(seq.ID)
		}
		if ci.SampleStart == ^uint64(0) {
			// Chunk ids are non-decreasing, so the first sequence we see
			// for a chunk carries the running total as its start offset.
			ci.SampleStart = numSamples
		}
		if seq.SampleCount > maxSampleCount {
			maxSampleCount = seq.SampleCount
		}
		numSamples += seq.SampleCount
	}
	info[numChunks] = contract.ChunkInformation{SequenceStart: numSequences, SampleStart: numSamples}

	return chunkIndex{
		chunkInfo:    info,
		numChunks:    numChunks,
		numSequences: numSequences,
		numSamples:   numSamples,
		// Frame mode just means every sequence has exactly one sample.
		frameMode: maxSampleCount == 1,
	}
}
