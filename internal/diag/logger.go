package diag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger is a minimal structured logger: single-line JSON written to a
// rotating file sink, with level filtering.
type Logger struct {
	corrID string
	level  Level
	sink   *RotatingFile
	mu     sync.Mutex
}

// NewLogger initializes a Logger at the configured level, writing to
// the default "logs" directory with a 10MiB rotation threshold.
func NewLogger(corrID, level string) *Logger {
	lvl := parseLevel(strings.TrimSpace(level))
	sink := NewRotatingFile("logs", 10*1024*1024)
	return &Logger{corrID: corrID, level: lvl, sink: sink}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Event is the standard log event shape. EpochID/SweepID correlate a
// log line with the epoch cursor's current position (§4.4).
type Event struct {
	Level   string            `json:"level"`
	TS      string            `json:"ts"`
	CorrID  string            `json:"corr_id"`
	Comp    string            `json:"comp"`
	Stage   string            `json:"stage"` // start|finish|error
	Code    string            `json:"code,omitempty"`
	DurMS   int64             `json:"dur_ms,omitempty"`
	Count   int64             `json:"count,omitempty"`
	EpochID string            `json:"epoch_id,omitempty"`
	SweepID string            `json:"sweep_id,omitempty"`
	Msg     string            `json:"msg"`
	KV      map[string]string `json:"kv,omitempty"`
}

// log writes out an event at minimal cost, honoring level filtering.
func (l *Logger) log(lv Level, ev Event) {
	if lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		_, _ = os.Stderr.Write(append(b, '\n'))
		return
	}
	if err := l.sink.WriteLine(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(append(b, '\n'))
	}
}

// Start records a start event and returns a Timer for Finish.
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith records a start event carrying epoch/sweep correlation ids.
func (l *Logger) StartWith(comp, msg, epochID, sweepID string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", EpochID: epochID, SweepID: sweepID, Msg: msg})
	return &Timer{l: l, comp: comp, epochID: epochID, sweepID: sweepID, t0: time.Now()}
}

// StartWithKV records a start event with extra key-value fields.
func (l *Logger) StartWithKV(comp, msg, epochID, sweepID string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", EpochID: epochID, SweepID: sweepID, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, epochID: epochID, sweepID: sweepID, t0: time.Now()}
}

// Error records an error event (never filtered by level).
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg})
}

// ErrorWith carries epoch/sweep correlation ids.
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, epochID, sweepID string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, EpochID: epochID, SweepID: sweepID})
}

// ErrorWithKV additionally carries extra key-value fields.
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, epochID, sweepID string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, EpochID: epochID, SweepID: sweepID, KV: kv})
}

// InfoFinish records a finish event given an already-known start time.
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// Timer measures a start-to-finish span.
type Timer struct {
	l       *Logger
	comp    string
	epochID string
	sweepID string
	t0      time.Time
}

// Finish records a finish event with an optional count.
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, EpochID: t.epochID, SweepID: t.sweepID, Msg: msg})
}

// DebugStart records a debug-level start event (only surfaces when
// level=debug).
func (l *Logger) DebugStart(comp, msg, epochID, sweepID string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", EpochID: epochID, SweepID: sweepID, Msg: msg, KV: kv})
}
