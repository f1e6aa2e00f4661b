package contract

// StreamDescription declares one output stream the packer assembles
// (§6, §9 "Variant storage"). ElementType and Storage are fixed at
// packer construction time; an unknown ElementType is rejected there
// (ErrUnsupportedElementType), never per-batch.
type StreamDescription struct {
	Name        string
	ElementType ElementType
	Storage     StorageType
	// NumElements is the number of ElementType-sized elements in one
	// sample of this stream (the flattened sample layout).
	NumElements int
}

// SampleBytes returns the packed byte width of one sample of this
// stream.
func (s StreamDescription) SampleBytes() int {
	return s.NumElements * s.ElementType.Size()
}

// MinibatchLayout describes the shape of one minibatch (§6). NumTimeSteps
// is always 1 in this core (frame mode only; §1 Non-goals).
type MinibatchLayout struct {
	NumParallel  uint64
	NumTimeSteps uint64
}

// Stream is one packed output stream of a minibatch: a borrowed view
// into a packer-owned buffer (§9 "Raw buffer sharing" — borrow until
// the next batch, expressed here as a byte slice rather than a raw
// pointer).
type Stream struct {
	Data     []byte
	ByteSize uint64
	Layout   MinibatchLayout
}

// Minibatch is the packer's output (§6).
type Minibatch struct {
	AtEndOfEpoch bool
	Streams      []Stream
}

// Trainer is the minimal consumption contract a host training loop
// drives (grounded on the original's ReaderShim.cpp; the training
// framework adapter itself is out of scope per §1, but the shape of
// the boundary it drives is part of this repo).
type Trainer interface {
	StartEpoch(cfg EpochConfiguration) error
	ReadMinibatch() (Minibatch, error)
}
