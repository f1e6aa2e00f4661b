package randomizer

// noSweep marks "no sweep computed yet", mirroring the original's use of
// SIZE_MAX to detect the very first randomizeForGlobalSamplePosition call.
const noSweep = ^uint64(0)

// randomizeForGlobalSamplePosition re-derives the sweep owning global
// sample position t and, if it differs from the current one, reruns C3
// and C4 for it (§4.4). sequencePositionInSweep is then set from t's
// remainder; this is only meaningful because the core is frame-mode
// only (one sample per sequence), so a sample position and a sequence
// position in a sweep coincide.
func (r *Randomizer) randomizeForGlobalSamplePosition(t uint64) {
	sweep := t / r.idx.numSamples

	if r.sweep != sweep {
		r.sweep = sweep
		r.sweepStartInSamples = sweep * r.idx.numSamples
		r.runSweep(sweep)
	}
	r.sequencePositionInSweep = t % r.idx.numSamples
}

// runSweep computes a fresh chunk and sequence randomization for sweep
// and validates the result (§8, invariants 2-3). A validation failure
// here can only stem from a bug in randomizeChunks/randomizeSequences,
// never from caller input, so it panics rather than returning an error
// (§7: InvalidChunkBounds/LogicMangledPermutation are both "fatal;
// logic bug").
func (r *Randomizer) runSweep(sweep uint64) {
	r.chunks = randomizeChunks(r.idx, sweep, r.rangeInSamples)
	if err := r.chunks.validate(); err != nil {
		panic(err)
	}
	r.sequences = randomizeSequences(r.timeline, r.idx, r.chunks, sweep)
	if err := r.sequences.validate(r.chunks); err != nil {
		panic(err)
	}
}

// randomizeIfNewSweepIsEntered rolls the cursor into the next sweep once
// the current one has been exhausted (§4.4 "Sweep rollover").
func (r *Randomizer) randomizeIfNewSweepIsEntered() {
	if r.sequencePositionInSweep >= r.idx.numSequences {
		r.sweep++
		r.sweepStartInSamples += r.idx.numSamples
		r.runSweep(r.sweep)
		r.sequencePositionInSweep = 0
	}
}

// advanceToNextPositionForThisWorker skips positions not owned by this
// worker, charging their sample count to samplePositionInEpoch without
// yielding them, until either an owned position is found or the epoch
// is exhausted (§4.4 "Worker sharding").
func (r *Randomizer) advanceToNextPositionForThisWorker() (atEndOfEpoch bool) {
	for r.samplePositionInEpoch < r.epochSize {
		r.randomizeIfNewSweepIsEntered()

		seq := r.sequences.slots[r.sequencePositionInSweep].seq
		if uint64(seq.RandomizedID)%r.numWorkers == r.workerRank {
			break
		}

		r.samplePositionInEpoch += seq.SampleCount
		r.sequencePositionInSweep++
	}
	return r.epochSize <= r.samplePositionInEpoch
}
