// Package randomizer implements the block randomizer core: a
// deterministic, windowed shuffle engine over a chunked timeline of
// sequences (C2 through C5). It drives chunk residency on an external
// contract.Deserializer via require/release hints and exposes sequence
// ids, in randomized order, to a packer.
package randomizer

import (
	"context"
	"fmt"

	"blockrandomizer/internal/diag"
	"blockrandomizer/pkg/contract"
)

// Config arms a Randomizer at construction (§6 "Randomizer
// configuration").
type Config struct {
	RandomizationRangeInSamples uint64
	Verbosity                   uint32
	// Residency, if non-nil, is notified of every require/release call
	// driveResidency issues (§4.4, §9 "Open questions" — cross-worker
	// trace correlation). Optional; nil means no observation.
	Residency contract.ResidencyObserver
}

// Randomizer is the public surface tying the chunk indexer, chunk
// randomizer, sequence randomizer and epoch cursor together (C2-C5).
// One instance belongs to exactly one worker; there is no shared
// mutable state between workers (§5).
type Randomizer struct {
	deserializer   contract.Deserializer
	timeline       contract.Timeline
	idx            chunkIndex
	rangeInSamples uint64
	verbosity      uint32
	residency      contract.ResidencyObserver

	sweep                   uint64
	sweepStartInSamples     uint64
	sequencePositionInSweep uint64
	samplePositionInEpoch   uint64
	epochSize               uint64
	workerRank              uint64
	numWorkers              uint64

	chunks    chunkRandomization
	sequences sequenceRandomization

	started bool
}

// New constructs a Randomizer over deserializer's timeline. The
// timeline is fetched once, validated against the §3 invariants, and
// indexed (C2). Per §9's open question, this core takes the "assert
// frame mode at construction" branch: every supplemental feature it
// ships (packer, sharding) assumes one sample per sequence, so a
// non-frame-mode timeline is rejected up front rather than silently
// mishandled later.
func New(ctx context.Context, deserializer contract.Deserializer, cfg Config) (*Randomizer, error) {
	timeline, err := deserializer.SequenceDescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("block randomizer: fetch timeline: %w", err)
	}
	if !isValidTimeline(timeline) {
		return nil, contract.ErrInvalidTimeline
	}

	idx := buildChunkIndex(timeline)
	if !idx.frameMode {
		return nil, fmt.Errorf("%w: sequences with sample_count > 1 are not supported by this core", contract.ErrInvalidTimeline)
	}

	rangeInSamples := cfg.RandomizationRangeInSamples
	if rangeInSamples == 0 {
		rangeInSamples = idx.numSamples
	}

	return &Randomizer{
		deserializer:   deserializer,
		timeline:       timeline,
		idx:            idx,
		rangeInSamples: rangeInSamples,
		verbosity:      cfg.Verbosity,
		residency:      cfg.Residency,
		sweep:          noSweep,
	}, nil
}

// StartEpoch arms the deserializer and this cursor for cfg (§4.4
// start_epoch). It always re-derives the sweep for the epoch's starting
// global sample position, so calling StartEpoch twice with an equal cfg
// yields an identical first batch (§8 invariant 7).
func (r *Randomizer) StartEpoch(ctx context.Context, cfg contract.EpochConfiguration) error {
	if cfg.NumWorkers == 0 {
		return fmt.Errorf("%w: num_workers must be >= 1", contract.ErrInvariantViolation)
	}
	if cfg.WorkerRank >= cfg.NumWorkers {
		return fmt.Errorf("%w: worker_rank must be < num_workers", contract.ErrInvariantViolation)
	}

	if err := r.deserializer.StartEpoch(ctx, cfg); err != nil {
		diag.IncOp("randomizer", "start_epoch", "error")
		diag.IncError("randomizer", string(diag.Classify(err)))
		return fmt.Errorf("block randomizer: deserializer start_epoch: %w", err)
	}
	diag.IncOp("randomizer", "start_epoch", "success")

	r.workerRank = cfg.WorkerRank
	r.numWorkers = cfg.NumWorkers

	epochSize := cfg.TotalSize
	if epochSize == contract.FullSweep {
		epochSize = r.idx.numSamples
	}
	r.epochSize = epochSize
	r.samplePositionInEpoch = 0

	t := epochSize * uint64(cfg.Index)
	r.randomizeForGlobalSamplePosition(t)
	r.started = true
	return nil
}

// batch is the result of one GetNextSequences call: the yielded
// sequences' original ids, in the order they should be fetched and
// packed, and whether the epoch ended before count could be filled.
type batch struct {
	ids          []contract.SequenceID
	atEndOfEpoch bool
}

// IDs returns the batch's original sequence ids, in yield order.
func (b batch) IDs() []contract.SequenceID { return b.ids }

// AtEndOfEpoch reports whether the epoch ended during the call that
// produced b.
func (b batch) AtEndOfEpoch() bool { return b.atEndOfEpoch }

// GetNextSequences advances the cursor by up to count accepted
// positions for this worker, drives chunk residency against the
// deserializer at the resulting batch boundary, and returns the
// original sequence ids to fetch (§4.4 "Chunk residency"). An empty,
// non-end-of-epoch batch never occurs; a terminal empty batch
// (atEndOfEpoch == true, len(ids) == 0) is legal.
func (r *Randomizer) GetNextSequences(ctx context.Context, count int) (batch, error) {
	if !r.started {
		return batch{}, contract.ErrEpochUnderflow
	}

	positions := make([]uint64, 0, count)
	var atEndOfEpoch bool
	for len(positions) < count {
		atEndOfEpoch = r.advanceToNextPositionForThisWorker()
		if atEndOfEpoch {
			break
		}
		positions = append(positions, r.sequencePositionInSweep)
		seq := r.sequences.slots[r.sequencePositionInSweep].seq
		r.samplePositionInEpoch += seq.SampleCount
		r.sequencePositionInSweep++
	}

	if len(positions) == 0 {
		return batch{atEndOfEpoch: atEndOfEpoch}, nil
	}

	if err := r.driveResidency(ctx, positions[0], positions[len(positions)-1]); err != nil {
		return batch{}, err
	}

	ids := make([]contract.SequenceID, len(positions))
	for i, p := range positions {
		ids[i] = r.sequences.slots[p].seq.OriginalID
	}
	return batch{ids: ids, atEndOfEpoch: atEndOfEpoch}, nil
}

// driveResidency computes the union window spanning [first, last] and
// issues exactly one require or release per chunk (§4.4, §8 invariant
// 6).
func (r *Randomizer) driveResidency(ctx context.Context, first, last uint64) error {
	wb := r.chunks.chunks[r.chunks.sequencePositionChunk[first]].WindowBegin
	we := r.chunks.chunks[r.chunks.sequencePositionChunk[last]].WindowEnd

	for k := uint64(0); k < r.idx.numChunks; k++ {
		original := r.chunks.chunks[k].OriginalIndex
		required := wb <= k && k < we
		var err error
		if required {
			err = r.deserializer.RequireChunk(ctx, original)
		} else {
			err = r.deserializer.ReleaseChunk(ctx, original)
		}
		if err != nil {
			diag.IncOp("randomizer", "residency", "error")
			diag.IncError("randomizer", string(diag.Classify(err)))
			return fmt.Errorf("block randomizer: chunk residency: %w", err)
		}
		if r.residency != nil {
			r.residency.Observe(original, required)
		}
	}
	diag.IncOp("randomizer", "residency", "success")
	return nil
}

// CurrentSweep returns the sweep index the cursor is currently
// positioned in (§4.4). Only meaningful after StartEpoch.
func (r *Randomizer) CurrentSweep() uint64 { return r.sweep }

// RandomizedTimeline returns the current sweep's randomized sequence
// order, for trace collaborators to digest alongside the
// residency events CurrentSweep's require/release calls produced.
func (r *Randomizer) RandomizedTimeline() []contract.RandomizedSequence {
	out := make([]contract.RandomizedSequence, len(r.sequences.slots))
	for i, s := range r.sequences.slots {
		out[i] = s.seq
	}
	return out
}

// Fetch requests sample data for the given batch from the deserializer.
func (r *Randomizer) Fetch(ctx context.Context, b batch) ([][]contract.SampleData, error) {
	if len(b.ids) == 0 {
		return nil, nil
	}
	data, err := r.deserializer.Fetch(ctx, b.ids)
	if err != nil {
		return nil, fmt.Errorf("block randomizer: fetch: %w", err)
	}
	return data, nil
}
