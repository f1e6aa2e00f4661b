package packer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/pkg/contract"
)

// stubTransformer hands out pre-baked records, one NextBatch call per
// entry of batches.
type stubTransformer struct {
	batches [][][]contract.SampleData
	ends    []bool
	i       int
}

func (s *stubTransformer) NextBatch(ctx context.Context, n int) ([][]contract.SampleData, bool, error) {
	if s.i >= len(s.batches) {
		return nil, true, nil
	}
	b, end := s.batches[s.i], s.ends[s.i]
	s.i++
	return b, end, nil
}

func denseF32Sample(vals ...float32) contract.SampleData {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		bits := math.Float32bits(v)
		buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
	}
	return contract.SampleData{Storage: contract.Dense, Bytes: buf, Samples: 1}
}

func readF32(b []byte, idx int) float32 {
	off := idx * 4
	bits := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
	return math.Float32frombits(bits)
}

func denseStream() contract.StreamDescription {
	return contract.StreamDescription{Name: "f", ElementType: contract.Float32, Storage: contract.Dense, NumElements: 2}
}

func TestNewRejectsNonPositiveMinibatchSize(t *testing.T) {
	_, err := New(&stubTransformer{}, contract.HeapMemoryProvider{}, 0, []contract.StreamDescription{denseStream()})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvariantViolation)
}

func TestNewRejectsSparseOutputStream(t *testing.T) {
	streams := []contract.StreamDescription{{Name: "s", ElementType: contract.Float32, Storage: contract.SparseCSC, NumElements: 2}}
	_, err := New(&stubTransformer{}, contract.HeapMemoryProvider{}, 4, streams)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrUnsupportedStorage)
}

func TestReadMinibatchPacksDenseRecords(t *testing.T) {
	tr := &stubTransformer{
		batches: [][][]contract.SampleData{
			{
				{denseF32Sample(1, 2)},
				{denseF32Sample(3, 4)},
			},
		},
		ends: []bool{false},
	}
	p, err := New(tr, contract.HeapMemoryProvider{}, 4, []contract.StreamDescription{denseStream()})
	require.NoError(t, err)
	defer p.Close()

	mb, err := p.ReadMinibatch(context.Background())
	require.NoError(t, err)
	require.False(t, mb.AtEndOfEpoch)
	require.Len(t, mb.Streams, 1)
	assert.Equal(t, uint64(2), mb.Streams[0].Layout.NumParallel)

	data := mb.Streams[0].Data
	assert.Equal(t, float32(1), readF32(data, 0))
	assert.Equal(t, float32(2), readF32(data, 1))
	assert.Equal(t, float32(3), readF32(data, 2))
	assert.Equal(t, float32(4), readF32(data, 3))
}

func TestReadMinibatchTerminalEmptyBatch(t *testing.T) {
	tr := &stubTransformer{batches: [][][]contract.SampleData{{}}, ends: []bool{true}}
	p, err := New(tr, contract.HeapMemoryProvider{}, 4, []contract.StreamDescription{denseStream()})
	require.NoError(t, err)
	defer p.Close()

	mb, err := p.ReadMinibatch(context.Background())
	require.NoError(t, err)
	assert.True(t, mb.AtEndOfEpoch)
	assert.Empty(t, mb.Streams)
}

func TestReadMinibatchScattersSparseCSC(t *testing.T) {
	tr := &stubTransformer{
		batches: [][][]contract.SampleData{
			{
				{{Storage: contract.SparseCSC, NonZero: f32Bytes(9), RowIndex: []uint32{1}}},
			},
		},
		ends: []bool{false},
	}
	p, err := New(tr, contract.HeapMemoryProvider{}, 2, []contract.StreamDescription{denseStream()})
	require.NoError(t, err)
	defer p.Close()

	mb, err := p.ReadMinibatch(context.Background())
	require.NoError(t, err)
	data := mb.Streams[0].Data
	assert.Equal(t, float32(0), readF32(data, 0))
	assert.Equal(t, float32(9), readF32(data, 1))
}

func TestReadMinibatchRejectsStreamCountMismatch(t *testing.T) {
	tr := &stubTransformer{
		batches: [][][]contract.SampleData{{{denseF32Sample(1, 2), denseF32Sample(3, 4)}}},
		ends:    []bool{false},
	}
	p, err := New(tr, contract.HeapMemoryProvider{}, 2, []contract.StreamDescription{denseStream()})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ReadMinibatch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvariantViolation)
}

func f32Bytes(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}
