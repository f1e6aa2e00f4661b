package config

import (
	"sync"

	"blockrandomizer/pkg/contract"
	"blockrandomizer/plugins/trace/filesystem"
)

// residencyCollector adapts the randomizer's per-chunk Observe hook
// into the batched event list RecordSweep expects.
type residencyCollector struct {
	mu     sync.Mutex
	events []filesystem.ResidencyEvent
}

func (c *residencyCollector) Observe(chunk contract.ChunkID, required bool) {
	c.mu.Lock()
	c.events = append(c.events, filesystem.ResidencyEvent{Chunk: chunk, Required: required})
	c.mu.Unlock()
}

func (c *residencyCollector) drain() []filesystem.ResidencyEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// TraceHandle ties a trace writer to the residency events accumulated
// for this worker since the last RecordSweep call.
type TraceHandle struct {
	writer    *filesystem.TraceWriter
	collector *residencyCollector
	rank      uint64
}

// RecordSweep digests timeline (the randomizer's current
// RandomizedTimeline) alongside every residency event observed since
// the last call, and appends one line to this worker's trace file. A
// nil receiver is a no-op, so callers need not branch on whether
// tracing was enabled.
func (h *TraceHandle) RecordSweep(sweep uint64, timeline []contract.RandomizedSequence) error {
	if h == nil {
		return nil
	}
	return h.writer.RecordSweep(h.rank, sweep, timeline, h.collector.drain())
}
