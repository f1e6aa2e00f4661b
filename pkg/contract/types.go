// Package contract defines the types and interfaces the block randomizer
// core consumes from (and exposes to) its external collaborators: the
// deserializer that performs I/O, the memory provider that supplies
// output buffers, and the host training loop that drives minibatches.
package contract

// SequenceID identifies one sequence within the dense 0-based timeline.
type SequenceID uint64

// ChunkID identifies one physical I/O unit (chunk) of sequences.
type ChunkID uint64

// sentinelChunkID marks the synthetic "original index" carried by the
// sentinel entry appended to a randomized chunk order.
const sentinelChunkID = ^ChunkID(0)

// IsSentinelChunk reports whether id is the out-of-band sentinel chunk id.
func IsSentinelChunk(id ChunkID) bool { return id == sentinelChunkID }

// SentinelChunkID returns the sentinel chunk id used to mark the
// one-past-the-end entry of a randomized chunk order.
func SentinelChunkID() ChunkID { return sentinelChunkID }

// SequenceDescription describes one entry of the flat timeline exposed
// by the deserializer.
//
// Invariants (validated once, at construction; see ErrInvalidTimeline):
//   - ids are a dense 0-based range in timeline order;
//   - ChunkID is non-decreasing and advances by 0 or 1 between adjacent
//     entries;
//   - SampleCount is always >= 1.
type SequenceDescription struct {
	ID          SequenceID
	ChunkID     ChunkID
	SampleCount uint64
}

// Timeline is the immutable, ordered list of sequence descriptors the
// deserializer hands to the randomizer once at construction time.
type Timeline []SequenceDescription

// ChunkInformation is the per-chunk offset table the indexer derives
// from a single pass over the Timeline, plus one sentinel entry at
// index num_chunks holding the totals (§3).
type ChunkInformation struct {
	SequenceStart uint64
	SampleStart   uint64
}

// RandomizedChunk is one entry of a sweep's shuffled chunk order (§3).
// A sentinel entry appears at position num_chunks with
// OriginalIndex == SentinelChunkID().
type RandomizedChunk struct {
	OriginalIndex ChunkID
	SequenceStart uint64
	SampleStart   uint64
	WindowBegin   uint64
	WindowEnd     uint64
}

// RandomizedSequence is one entry of a sweep's RandomizedTimeline: the
// original descriptor with ChunkID rewritten to the position in the
// shuffled chunk order.
type RandomizedSequence struct {
	OriginalID   SequenceID
	RandomizedID ChunkID
	SampleCount  uint64
}

// EpochIndex identifies the caller-requested epoch within a run
// (EpochConfiguration.Index in §6).
type EpochIndex uint64

// FullSweep is the sentinel value for EpochConfiguration.TotalSize
// meaning "one full sweep" (⊤ in §6); the cursor interprets it as
// num_samples.
const FullSweep uint64 = ^uint64(0)

// EpochConfiguration arms the deserializer and epoch cursor for one
// epoch (§6).
type EpochConfiguration struct {
	Index         EpochIndex
	TotalSize     uint64 // FullSweep means "one full sweep"
	MinibatchSize uint64
	WorkerRank    uint64
	NumWorkers    uint64
}

// ResidencyObserver is an optional hook the randomizer core drives,
// once per chunk, every time it resolves residency at a batch boundary
// (§4.4 "Chunk residency"). It exists so a trace collaborator can
// record the require/release sequence alongside the RandomizedTimeline
// it was derived from, without the core depending on any particular
// trace implementation.
type ResidencyObserver interface {
	Observe(chunk ChunkID, required bool)
}
