package filechunks

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockrandomizer/pkg/contract"
)

func writeChunkFile(t *testing.T, dir, name string, lines []string) {
	t.Helper()
	var b []byte
	for _, l := range lines {
		b = append(b, []byte(l+"\n")...)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o644))
}

func twoChunkDir(t *testing.T) string {
	dir := t.TempDir()
	writeChunkFile(t, dir, "chunk-000.jsonl", []string{"[0,0]", "[1,1]", "[2,2]"})
	writeChunkFile(t, dir, "chunk-001.jsonl", []string{"[3,3]", "[4,4]"})
	return dir
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(&Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

func TestSequenceDescriptionsCountsAndOrdersByFilename(t *testing.T) {
	dir := twoChunkDir(t)
	d, err := New(&Options{Dir: dir})
	require.NoError(t, err)

	tl, err := d.SequenceDescriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, tl, 5)
	assert.Equal(t, contract.ChunkID(0), tl[0].ChunkID)
	assert.Equal(t, contract.ChunkID(1), tl[4].ChunkID)

	// Second call must reuse the cached timeline, not rescan.
	tl2, err := d.SequenceDescriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tl, tl2)
}

func TestRequireChunkIsIdempotentAndFetchNeedsResidency(t *testing.T) {
	dir := twoChunkDir(t)
	d, err := New(&Options{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.SequenceDescriptions(ctx)
	require.NoError(t, err)

	_, err = d.Fetch(ctx, []contract.SequenceID{0})
	require.Error(t, err)

	require.NoError(t, d.RequireChunk(ctx, 0))
	require.NoError(t, d.RequireChunk(ctx, 0)) // idempotent

	out, err := d.Fetch(ctx, []contract.SequenceID{1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	v := math.Float32frombits(uint32(out[0][0].Bytes[0]) | uint32(out[0][0].Bytes[1])<<8 | uint32(out[0][0].Bytes[2])<<16 | uint32(out[0][0].Bytes[3])<<24)
	assert.Equal(t, float32(1), v)

	require.NoError(t, d.ReleaseChunk(ctx, 0))
	_, err = d.Fetch(ctx, []contract.SequenceID{1})
	require.Error(t, err)
}

func TestReleaseChunkTolerant(t *testing.T) {
	dir := twoChunkDir(t)
	d, err := New(&Options{Dir: dir})
	require.NoError(t, err)
	assert.NoError(t, d.ReleaseChunk(context.Background(), 7))
}

func TestRequireChunkOutOfRange(t *testing.T) {
	dir := twoChunkDir(t)
	d, err := New(&Options{Dir: dir})
	require.NoError(t, err)
	err = d.RequireChunk(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

func TestLocateSecondChunk(t *testing.T) {
	dir := twoChunkDir(t)
	d, err := New(&Options{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = d.SequenceDescriptions(ctx)
	require.NoError(t, err)
	require.NoError(t, d.RequireChunk(ctx, 1))

	out, err := d.Fetch(ctx, []contract.SequenceID{4})
	require.NoError(t, err)
	v := math.Float32frombits(uint32(out[0][0].Bytes[0]) | uint32(out[0][0].Bytes[1])<<8 | uint32(out[0][0].Bytes[2])<<16 | uint32(out[0][0].Bytes[3])<<24)
	assert.Equal(t, float32(4), v)
}
