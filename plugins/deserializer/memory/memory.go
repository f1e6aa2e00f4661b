// Package memory implements an in-memory reference
// contract.Deserializer over caller-supplied chunks, useful for tests,
// demos and the memory-resident default of cmd/blockrandomizer.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"blockrandomizer/pkg/contract"
)

// Chunk is one caller-supplied chunk: a dense sample per sequence.
type Chunk struct {
	// Samples holds one []float32 per sequence in this chunk.
	Samples [][]float32 `json:"samples"`
}

// Options configures the in-memory deserializer. Chunks are indexed by
// their position in the slice.
type Options struct {
	Chunks []Chunk `json:"chunks"`
}

// Deserializer is the in-memory contract.Deserializer implementation.
type Deserializer struct {
	chunks   []Chunk
	timeline contract.Timeline

	mu       sync.Mutex
	resident map[contract.ChunkID]bool
	runID    uuid.UUID
}

// New builds an in-memory deserializer and its timeline up front, since
// all data is already resident in the caller's process.
func New(opts Options) (*Deserializer, error) {
	if len(opts.Chunks) == 0 {
		return nil, fmt.Errorf("%w: at least one chunk is required", contract.ErrInvalidTimeline)
	}

	var timeline contract.Timeline
	var seqID contract.SequenceID
	for ci, c := range opts.Chunks {
		if len(c.Samples) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has no sequences", contract.ErrInvalidTimeline, ci)
		}
		for range c.Samples {
			timeline = append(timeline, contract.SequenceDescription{
				ID:          seqID,
				ChunkID:     contract.ChunkID(ci),
				SampleCount: 1,
			})
			seqID++
		}
	}

	return &Deserializer{
		chunks:   opts.Chunks,
		timeline: timeline,
		resident: make(map[contract.ChunkID]bool),
	}, nil
}

// SequenceDescriptions implements contract.Deserializer.
func (d *Deserializer) SequenceDescriptions(ctx context.Context) (contract.Timeline, error) {
	return d.timeline, nil
}

// StartEpoch stamps a fresh run id for cross-worker trace correlation;
// everything else about this deserializer is static.
func (d *Deserializer) StartEpoch(ctx context.Context, cfg contract.EpochConfiguration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runID = uuid.New()
	return nil
}

// RunID returns the correlation id stamped by the most recent
// StartEpoch, for use in trace output.
func (d *Deserializer) RunID() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runID
}

// RequireChunk marks a chunk resident. Idempotent.
func (d *Deserializer) RequireChunk(ctx context.Context, original contract.ChunkID) error {
	if int(original) >= len(d.chunks) {
		return fmt.Errorf("%w: chunk %d out of range", contract.ErrPathInvalid, original)
	}
	d.mu.Lock()
	d.resident[original] = true
	d.mu.Unlock()
	return nil
}

// ReleaseChunk marks a chunk non-resident. Tolerates a non-resident
// argument.
func (d *Deserializer) ReleaseChunk(ctx context.Context, original contract.ChunkID) error {
	d.mu.Lock()
	delete(d.resident, original)
	d.mu.Unlock()
	return nil
}

// Fetch resolves sequence ids to dense sample data. All data here is
// already in memory, so residency only gates correctness checking, not
// where bytes come from.
func (d *Deserializer) Fetch(ctx context.Context, ids []contract.SequenceID) ([][]contract.SampleData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]contract.SampleData, len(ids))
	for i, id := range ids {
		if int(id) >= len(d.timeline) {
			return nil, fmt.Errorf("%w: sequence %d unknown", contract.ErrInvariantViolation, id)
		}
		desc := d.timeline[id]
		if !d.resident[desc.ChunkID] {
			return nil, fmt.Errorf("%w: chunk %d not resident for sequence %d", contract.ErrInvariantViolation, desc.ChunkID, id)
		}
		vals := d.sampleFor(id, desc.ChunkID)
		buf := make([]byte, len(vals)*4)
		for j, v := range vals {
			b := math.Float32bits(v)
			buf[j*4], buf[j*4+1], buf[j*4+2], buf[j*4+3] = byte(b), byte(b>>8), byte(b>>16), byte(b>>24)
		}
		out[i] = []contract.SampleData{{Storage: contract.Dense, Bytes: buf, Samples: 1}}
	}
	return out, nil
}

func (d *Deserializer) sampleFor(id contract.SequenceID, chunkID contract.ChunkID) []float32 {
	var chunkFirst contract.SequenceID
	for i := int(id); i >= 0 && d.timeline[i].ChunkID == chunkID; i-- {
		chunkFirst = d.timeline[i].ID
	}
	return d.chunks[chunkID].Samples[int(id-chunkFirst)]
}
