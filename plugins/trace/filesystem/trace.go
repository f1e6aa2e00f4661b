// Package filesystem implements a TraceWriter that dumps, once per
// sweep, the require/release sequence and a digest of the
// RandomizedTimeline to a file — the reference material two workers'
// (or two runs') traces are diffed against to confirm the PRNG
// contract's cross-worker consistency promise (§4.6, §9 "Open
// questions"). Grounded on the filesystem writer's atomic-replace
// style.
package filesystem

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blockrandomizer/pkg/contract"
)

// Options configures the trace writer.
type Options struct {
	// Dir is the output directory; one file per worker rank is written
	// as trace-worker-<rank>.log.
	Dir string `json:"dir"`
}

// TraceWriter records, per sweep, a digest of the randomized timeline
// and the require/release calls driven for it.
type TraceWriter struct {
	dir string
}

// New validates dir and returns a TraceWriter.
func New(opts *Options) (*TraceWriter, error) {
	if opts == nil || strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("%w: dir is required", contract.ErrPathInvalid)
	}
	return &TraceWriter{dir: opts.Dir}, nil
}

// RecordSweep appends one line to worker rank's trace file: the sweep
// index, a digest of the randomized timeline, and the require/release
// log accumulated for it. Two workers that disagree on the timeline
// digest for the same (timeline, sweep, range) pair have a PRNG or
// wiring bug; the residency digest depends on the batches each worker
// yielded.
func (w *TraceWriter) RecordSweep(rank uint64, sweep uint64, timeline []contract.RandomizedSequence, residency []ResidencyEvent) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(w.dir, fmt.Sprintf("trace-worker-%d.log", rank))

	line := fmt.Sprintf("sweep=%d timeline=%s residency=%s\n",
		sweep, digestTimeline(timeline), digestResidency(residency))

	return appendAtomic(dest, line)
}

// ResidencyEvent is one require/release call issued against a chunk at
// a batch boundary (§4.4 "Chunk residency").
type ResidencyEvent struct {
	Chunk    contract.ChunkID
	Required bool
}

func digestTimeline(t []contract.RandomizedSequence) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, s := range t {
		binary.LittleEndian.PutUint64(buf, uint64(s.OriginalID))
		h.Write(buf)
		binary.LittleEndian.PutUint64(buf, uint64(s.RandomizedID))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func digestResidency(events []ResidencyEvent) string {
	h := sha256.New()
	buf := make([]byte, 9)
	for _, e := range events {
		binary.LittleEndian.PutUint64(buf, uint64(e.Chunk))
		if e.Required {
			buf[8] = 1
		} else {
			buf[8] = 0
		}
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// appendAtomic appends line to dest via a temp-file-plus-rename dance
// so a crash mid-write never corrupts a line other readers may already
// be tailing.
func appendAtomic(dest, line string) error {
	existing, err := os.ReadFile(dest)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-trace-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if _, err := bw.Write(existing); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := bw.WriteString(line); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}
