package randomizer

import "blockrandomizer/pkg/contract"

// placedSequence is one sequence descriptor occupying a position in
// the sweep's sequence order. Validity is a property of the position
// it currently occupies, not of where it originated: a sequence is
// valid at position p iff its randomized chunk id falls inside the
// window of whichever chunk owns p (§4.3).
type placedSequence struct {
	seq contract.RandomizedSequence
}

// sequenceRandomization is the output of the sequence randomizer (C4,
// §4.3): one sweep's fully shuffled sequence order.
type sequenceRandomization struct {
	slots []placedSequence // len == numSequences, in randomized order
}

// randomizeSequences builds the Phase A chunk-shuffled baseline, then
// applies the Phase B windowed shuffle: for every position it draws a
// swap partner from the position's valid sequence-position range and
// accepts only swaps that leave both sequences inside the windows of
// the positions they move to (§4.3; grounded on the original's Randomize, which calls this
// step "randomize sequences" over the already chunk-randomized
// timeline, BlockRandomizer.cpp).
func randomizeSequences(timeline contract.Timeline, idx chunkIndex, cr chunkRandomization, sweep uint64) sequenceRandomization {
	numChunks := idx.numChunks
	slots := make([]placedSequence, idx.numSequences)

	// Phase A: lay sequences out in randomized-chunk order.
	pos := uint64(0)
	for k := uint64(0); k < numChunks; k++ {
		original := cr.chunks[k].OriginalIndex
		begin := idx.chunkInfo[original].SequenceStart
		end := idx.chunkInfo[original+1].SequenceStart
		for orig := begin; orig < end; orig++ {
			slots[pos] = placedSequence{
				seq: contract.RandomizedSequence{
					OriginalID:   contract.SequenceID(orig),
					RandomizedID: contract.ChunkID(k),
					SampleCount:  timeline[orig].SampleCount,
				},
			}
			pos++
		}
	}

	// Phase B: windowed Fisher-Yates. Seed s+1 keeps the sequence
	// shuffle independent of the chunk shuffle's draw sequence (§4.6).
	rng := newSequencePRNG(sweep)

	// isValidAt tests the spec's "element valid at position" predicate
	// (§4.3, original's IsValidForPosition, BlockRandomizer.cpp): s is
	// valid at pos iff s's randomized chunk id falls inside the window
	// of the chunk that currently owns pos.
	isValidAt := func(pos uint64, s placedSequence) bool {
		w := cr.chunks[cr.sequencePositionChunk[pos]]
		return w.WindowBegin <= uint64(s.seq.RandomizedID) && uint64(s.seq.RandomizedID) < w.WindowEnd
	}

	for t := uint64(0); t < uint64(len(slots)); t++ {
		chunkK := cr.sequencePositionChunk[t]
		posBegin := cr.chunks[cr.chunks[chunkK].WindowBegin].SequenceStart
		posEnd := cr.chunks[cr.chunks[chunkK].WindowEnd].SequenceStart

		for {
			j := rng.uniformInt(posBegin, posEnd)
			if isValidAt(t, slots[j]) && isValidAt(j, slots[t]) {
				slots[t], slots[j] = slots[j], slots[t]
				break
			}
		}
	}

	return sequenceRandomization{slots: slots}
}

// validate re-checks, position by position, that every sequence's
// randomized chunk id falls inside the window of the chunk occupying
// that position (§4.3, §8 property 2; fatal via
// ErrLogicMangledPermutation if violated — this can only happen from a
// bug in randomizeSequences, never from input data).
func (sr sequenceRandomization) validate(cr chunkRandomization) error {
	for pos, s := range sr.slots {
		w := cr.chunks[cr.sequencePositionChunk[uint64(pos)]]
		id := uint64(s.seq.RandomizedID)
		if id < w.WindowBegin || id >= w.WindowEnd {
			return contract.ErrLogicMangledPermutation
		}
	}
	return nil
}
