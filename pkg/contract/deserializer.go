package contract

import "context"

// Deserializer is the external collaborator that performs I/O (§6,
// consumed). The core drives chunk residency purely through
// RequireChunk/ReleaseChunk hints between minibatch boundaries;
// Fetch is the only call that may block on I/O.
type Deserializer interface {
	// SequenceDescriptions returns the immutable, ordered timeline.
	// Called once, at construction of the randomizer.
	SequenceDescriptions(ctx context.Context) (Timeline, error)

	// StartEpoch arms the deserializer for the upcoming pass.
	StartEpoch(ctx context.Context, cfg EpochConfiguration) error

	// RequireChunk hints that a chunk should be made resident.
	// Idempotent.
	RequireChunk(ctx context.Context, original ChunkID) error

	// ReleaseChunk hints that a chunk may be dropped. Idempotent; must
	// tolerate a non-resident argument.
	ReleaseChunk(ctx context.Context, original ChunkID) error

	// Fetch returns, for each requested sequence id (in the order
	// given), one SampleData per configured stream. May block on I/O.
	Fetch(ctx context.Context, ids []SequenceID) ([][]SampleData, error)
}

// StorageType names the two sample-data shapes the packer understands
// (§6, §9 "Variant storage").
type StorageType int

const (
	Dense StorageType = iota
	SparseCSC
)

func (s StorageType) String() string {
	switch s {
	case Dense:
		return "dense"
	case SparseCSC:
		return "sparse_csc"
	default:
		return "unknown"
	}
}

// ElementType names the element types a stream may carry. Unknown
// types are rejected at configuration time (ErrUnsupportedElementType).
type ElementType int

const (
	Float32 ElementType = iota
	Float64
)

// Size returns the element's width in bytes.
func (e ElementType) Size() int {
	switch e {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (e ElementType) String() string {
	switch e {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// SampleData is a tagged sum type: exactly one of Dense or SparseCSC
// shapes is populated, selected by Storage. Modeled as a sum type
// rather than downcasting, per §9.
type SampleData struct {
	Storage StorageType

	// Dense: Bytes holds exactly one sample's worth of packed element
	// data (Samples == 1 in frame mode).
	Bytes   []byte
	Samples uint64

	// SparseCSC: NonZero holds the packed non-zero element bytes for a
	// single frame; RowIndex[i] is the destination row for NonZero's
	// i-th element.
	NonZero  []byte
	RowIndex []uint32
}
