// Package packer implements the packer (C6): it pulls already-selected,
// already-decorated sample records from a contract.Transformer chain
// and assembles them into contiguous, fixed-size minibatches inside
// pre-allocated buffers (§4.5; grounded on the original's
// FrameModePacker.cpp).
package packer

import (
	"context"
	"fmt"
	"time"

	"blockrandomizer/internal/diag"
	"blockrandomizer/pkg/contract"
)

// Packer assembles minibatches. One dense buffer is pre-allocated per
// output stream, sized minibatchSize*sampleBytes(stream) and aligned to
// max(elementSize, pointer size) by the MemoryProvider.
type Packer struct {
	transformer    contract.Transformer
	memoryProvider contract.MemoryProvider
	minibatchSize  int
	streams        []contract.StreamDescription
	buffers        [][]byte
}

// New validates streams and pre-allocates one buffer per stream.
// sparse_csc output streams are rejected: the packer always produces
// dense output, scattering sparse input into it (§4.5 step 2); an
// unknown element type is rejected here, once, rather than per record
// (§7 UnsupportedElementType is "fatal at configuration").
func New(transformer contract.Transformer, memoryProvider contract.MemoryProvider, minibatchSize int, streams []contract.StreamDescription) (*Packer, error) {
	if minibatchSize <= 0 {
		return nil, fmt.Errorf("%w: minibatch_size must be positive", contract.ErrInvariantViolation)
	}

	buffers := make([][]byte, len(streams))
	for i, s := range streams {
		if s.Storage == contract.SparseCSC {
			return nil, fmt.Errorf("%w: output stream %q must be dense", contract.ErrUnsupportedStorage, s.Name)
		}
		if s.ElementType.Size() == 0 {
			return nil, fmt.Errorf("%w: stream %q", contract.ErrUnsupportedElementType, s.Name)
		}
		buffers[i] = memoryProvider.Alloc(s.ElementType.Size(), minibatchSize*s.NumElements)
	}

	return &Packer{
		transformer:    transformer,
		memoryProvider: memoryProvider,
		minibatchSize:  minibatchSize,
		streams:        streams,
		buffers:        buffers,
	}, nil
}

// Close releases the packer's buffers back to its MemoryProvider.
func (p *Packer) Close() {
	for _, buf := range p.buffers {
		p.memoryProvider.Free(buf)
	}
}

// ReadMinibatch pulls up to minibatchSize records from the transformer
// chain and packs them into the pre-allocated buffers (§4.5). A
// terminal empty batch (AtEndOfEpoch == true, no streams) is legal.
func (p *Packer) ReadMinibatch(ctx context.Context) (contract.Minibatch, error) {
	t0 := time.Now()
	records, atEndOfEpoch, err := p.transformer.NextBatch(ctx, p.minibatchSize)
	if err != nil {
		diag.IncOp("packer", "read_minibatch", "error")
		diag.IncError("packer", string(diag.Classify(err)))
		return contract.Minibatch{}, fmt.Errorf("packer: next batch: %w", err)
	}

	for i, record := range records {
		if len(record) != len(p.streams) {
			err := fmt.Errorf("%w: record %d carries %d streams, want %d", contract.ErrInvariantViolation, i, len(record), len(p.streams))
			diag.IncOp("packer", "read_minibatch", "error")
			diag.IncError("packer", string(diag.Classify(err)))
			return contract.Minibatch{}, err
		}
		for j, sample := range record {
			if err := p.packOne(j, i, sample); err != nil {
				diag.IncOp("packer", "read_minibatch", "error")
				diag.IncError("packer", string(diag.Classify(err)))
				return contract.Minibatch{}, err
			}
		}
	}

	diag.IncOp("packer", "read_minibatch", "success")
	diag.ObserveDuration("packer", "read_minibatch", time.Since(t0).Milliseconds())

	if len(records) == 0 {
		return contract.Minibatch{AtEndOfEpoch: atEndOfEpoch}, nil
	}

	layout := contract.MinibatchLayout{NumParallel: uint64(len(records)), NumTimeSteps: 1}
	streams := make([]contract.Stream, len(p.streams))
	for j, s := range p.streams {
		dims := uint64(s.SampleBytes())
		streams[j] = contract.Stream{
			Data:     p.buffers[j][:uint64(len(records))*dims],
			ByteSize: uint64(len(records)) * dims,
			Layout:   layout,
		}
	}

	return contract.Minibatch{AtEndOfEpoch: atEndOfEpoch, Streams: streams}, nil
}

// packOne copies or scatters one sample into slot i of stream j's
// buffer (§4.5 step 2).
func (p *Packer) packOne(streamIdx, slot int, sample contract.SampleData) error {
	desc := p.streams[streamIdx]
	dims := desc.SampleBytes()
	buf := p.buffers[streamIdx]
	elemSize := desc.ElementType.Size()
	base := slot * dims

	switch sample.Storage {
	case contract.Dense:
		if sample.Samples != 1 {
			return fmt.Errorf("%w: dense sample with samples=%d, frame mode requires 1", contract.ErrInvariantViolation, sample.Samples)
		}
		copy(buf[base:base+dims], sample.Bytes)
	case contract.SparseCSC:
		for k := base; k < base+dims; k++ {
			buf[k] = 0
		}
		for n, row := range sample.RowIndex {
			dst := base + int(row)*elemSize
			src := n * elemSize
			copy(buf[dst:dst+elemSize], sample.NonZero[src:src+elemSize])
		}
	default:
		return fmt.Errorf("%w: storage kind %d", contract.ErrUnsupportedStorage, sample.Storage)
	}
	return nil
}
