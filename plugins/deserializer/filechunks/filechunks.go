// Package filechunks implements a file-backed contract.Deserializer:
// each chunk is one JSONL file in a directory, one line per sequence, a
// flat JSON array of float32 values. Chunk ids are assigned by stable
// lexicographic filename order (grounded on the filesystem reader's
// directory-walk style).
package filechunks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"blockrandomizer/pkg/contract"
)

// Options configures a file-backed deserializer.
type Options struct {
	// Dir holds one JSONL file per chunk.
	Dir string `json:"dir"`
	// BufSize is the read buffer size in bytes. Default 64KiB.
	BufSize int `json:"buf_size"`
}

type chunkFile struct {
	id   contract.ChunkID
	path string
}

// Deserializer is the file-backed contract.Deserializer implementation.
type Deserializer struct {
	bufSize int

	mu        sync.Mutex
	files     []chunkFile              // index == chunk id
	resident  map[contract.ChunkID][][]float32 // parsed lines, present while required
	timeline  contract.Timeline
}

// New scans dir once (stable lexicographic order) and builds the
// chunk-to-file table. It does not read sample data; that is deferred
// to RequireChunk, matching the core's "I/O only on require/fetch"
// contract (§5).
func New(opts *Options) (*Deserializer, error) {
	if opts == nil || opts.Dir == "" {
		return nil, fmt.Errorf("%w: dir is required", contract.ErrPathInvalid)
	}
	bufSize := opts.BufSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("filechunks: read dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	files := make([]chunkFile, len(names))
	for i, name := range names {
		files[i] = chunkFile{id: contract.ChunkID(i), path: filepath.Join(opts.Dir, name)}
	}

	return &Deserializer{
		bufSize:  bufSize,
		files:    files,
		resident: make(map[contract.ChunkID][][]float32),
	}, nil
}

// SequenceDescriptions scans every chunk file once to count lines and
// derive the timeline (§6). Every sequence here is a single frame:
// sample_count is always 1.
func (d *Deserializer) SequenceDescriptions(ctx context.Context) (contract.Timeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timeline != nil {
		return d.timeline, nil
	}

	var timeline contract.Timeline
	var seqID contract.SequenceID
	for i := range d.files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		n, err := countLines(d.files[i].path, d.bufSize)
		if err != nil {
			return nil, fmt.Errorf("filechunks: scan %s: %w", d.files[i].path, err)
		}
		for j := 0; j < n; j++ {
			timeline = append(timeline, contract.SequenceDescription{
				ID:          seqID,
				ChunkID:     d.files[i].id,
				SampleCount: 1,
			})
			seqID++
		}
	}

	d.timeline = timeline
	return timeline, nil
}

// StartEpoch is a no-op: this deserializer carries no per-epoch state
// of its own.
func (d *Deserializer) StartEpoch(ctx context.Context, cfg contract.EpochConfiguration) error {
	return nil
}

// RequireChunk reads and parses the chunk's file into memory. Repeat
// calls while already resident are a no-op (idempotent, §6).
func (d *Deserializer) RequireChunk(ctx context.Context, original contract.ChunkID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(original) >= len(d.files) {
		return fmt.Errorf("%w: chunk %d out of range", contract.ErrPathInvalid, original)
	}
	if _, ok := d.resident[original]; ok {
		return nil
	}

	lines, err := readLines(d.files[original].path, d.bufSize)
	if err != nil {
		return fmt.Errorf("filechunks: require chunk %d: %w", original, err)
	}
	samples := make([][]float32, len(lines))
	for i, line := range lines {
		var vals []float32
		if err := json.Unmarshal(line, &vals); err != nil {
			return fmt.Errorf("filechunks: decode chunk %d line %d: %w", original, i, err)
		}
		samples[i] = vals
	}
	d.resident[original] = samples
	return nil
}

// ReleaseChunk drops a chunk's parsed data. Tolerates a non-resident
// argument (§6).
func (d *Deserializer) ReleaseChunk(ctx context.Context, original contract.ChunkID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.resident, original)
	return nil
}

// Fetch resolves sequence ids to dense sample data. Every id's owning
// chunk must currently be resident (the caller is expected to have
// required it; this mirrors the original's assumption that
// GetSequencesById is only ever called within the active window).
func (d *Deserializer) Fetch(ctx context.Context, ids []contract.SequenceID) ([][]contract.SampleData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]contract.SampleData, len(ids))
	for i, id := range ids {
		chunkID, lineIdx, err := d.locate(id)
		if err != nil {
			return nil, err
		}
		samples, ok := d.resident[chunkID]
		if !ok {
			return nil, fmt.Errorf("filechunks: chunk %d not resident for sequence %d", chunkID, id)
		}
		vals := samples[lineIdx]
		buf := make([]byte, 0, len(vals)*4)
		for _, v := range vals {
			buf = appendFloat32(buf, v)
		}
		out[i] = []contract.SampleData{{Storage: contract.Dense, Bytes: buf, Samples: 1}}
	}
	return out, nil
}

// locate maps a sequence id to its owning chunk and within-chunk line
// index using the timeline built by SequenceDescriptions.
func (d *Deserializer) locate(id contract.SequenceID) (contract.ChunkID, int, error) {
	if d.timeline == nil || int(id) >= len(d.timeline) {
		return 0, 0, fmt.Errorf("%w: sequence %d unknown", contract.ErrInvariantViolation, id)
	}
	desc := d.timeline[id]
	// Sequences within a chunk are dense-numbered starting at the
	// chunk's first sequence id.
	var chunkStart contract.SequenceID
	for i := int(id); i >= 0; i-- {
		if d.timeline[i].ChunkID != desc.ChunkID {
			chunkStart = d.timeline[i+1].ID
			break
		}
		if i == 0 {
			chunkStart = 0
		}
	}
	return desc.ChunkID, int(id - chunkStart), nil
}
