package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Terminal is a progress surface (not a log): it writes run/epoch
// milestones to an io.Writer (typically stderr). On a TTY, progress
// within one epoch overwrites a single line via \r; on a non-TTY
// stream, each milestone is printed on its own line. Safe for
// concurrent use; disables itself (becomes a no-op) after a write
// error.
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	numWorkers   int
	deserializer string
	epochsDone   int
	runStart     time.Time

	curEpochID     string
	batchesTotal   int
	batchesDone    int
	residencyFault int

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

// Process-wide terminal (optional), set once and consulted by
// collaborators that have no direct reference to it.
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal sets the global terminal pointer (nil clears it).
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal returns the global terminal (may be nil).
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal constructs a progress surface. enabled=false makes every
// method a permanent no-op.
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

// RunStart records the run's context (worker count, deserializer name).
func (t *Terminal) RunStart(numWorkers int, deserializer string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.numWorkers = numWorkers
	t.deserializer = deserializer
	t.epochsDone = 0
	t.runStart = time.Now()
	if t.isTTY {
		t.println(fmt.Sprintf("[run] workers=%d | deserializer=%s | waiting for epochs…", numWorkers, safe(deserializer)))
	} else {
		t.println(fmt.Sprintf("[run] workers=%d | deserializer=%s", numWorkers, safe(deserializer)))
	}
}

// EpochStart marks the current epoch and its planned batch count.
func (t *Terminal) EpochStart(epochID string, batchesTotal int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curEpochID = shorten(epochID, 48)
	t.batchesTotal = batchesTotal
	t.batchesDone = 0
	t.residencyFault = 0
	if !t.isTTY {
		t.println(fmt.Sprintf("[epoch] %s | planned batches=%d", t.curEpochID, batchesTotal))
	}
}

// EpochProgress reports periodic progress (throttled to >=100ms).
func (t *Terminal) EpochProgress(done, total, residencyFaults int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.batchesDone = done
	t.batchesTotal = total
	t.residencyFault = residencyFaults
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	line := fmt.Sprintf("[epoch] %s | progress %d/%d | residency faults %d | workers %d | elapsed %s",
		t.curEpochID, t.batchesDone, t.batchesTotal, t.residencyFault, t.numWorkers, formatSince(t.runStart))
	t.printInline(line)
}

// EpochFinish completes the current epoch (flushes immediately and
// starts a new line; EpochsDone++).
func (t *Terminal) EpochFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.epochsDone++
	status := "done"
	if !ok {
		status = "fail"
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s | batches %d | elapsed %s",
		status, t.curEpochID, t.batchesTotal, formatDur(dur)))
}

// RunFinish prints the overall summary.
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] all done | epochs %d | elapsed %s", tag, t.epochsDone, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shorten truncates s to at most max visible runes, appending an
// ellipsis when it had to cut.
func shorten(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if visLen(s) <= max {
		return s
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(s)
	if len(rs) <= cut {
		return string(rs)
	}
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
