package diag

import "sync"

// Minimal in-process metrics registry, no exported implementation
// swap points beyond Snapshot. Names follow the same comp/stage/code
// dimensions the structured logger uses:
//   - op_total{comp,stage,result}
//   - error_total{comp,code}
//   - op_duration_ms{comp,stage} (sum + count, for an average)

var (
	mu       sync.Mutex
	opTotal  = map[[3]string]int64{} // comp, stage, result
	errTotal = map[[2]string]int64{} // comp, code
	durSum   = map[[2]string]int64{} // comp, stage -> sum ms
	durCount = map[[2]string]int64{} // comp, stage -> count
)

// IncOp accumulates one operation count (result is typically
// "success" or "error").
func IncOp(comp, stage, result string) {
	mu.Lock()
	opTotal[[3]string{comp, stage, result}]++
	mu.Unlock()
}

// IncError accumulates one error count by classification code.
func IncError(comp, code string) {
	mu.Lock()
	errTotal[[2]string{comp, code}]++
	mu.Unlock()
}

// ObserveDuration records one stage duration in milliseconds.
func ObserveDuration(comp, stage string, durMS int64) {
	key := [2]string{comp, stage}
	mu.Lock()
	durSum[key] += durMS
	durCount[key]++
	mu.Unlock()
}

// Snapshot is a point-in-time copy of every counter, for the CLI's
// end-of-run summary and for tests. It never resets the underlying
// counters.
type Snapshot struct {
	OpTotal  map[[3]string]int64
	ErrTotal map[[2]string]int64
	AvgDur   map[[2]string]float64
}

// TakeSnapshot copies the current counters.
func TakeSnapshot() Snapshot {
	mu.Lock()
	defer mu.Unlock()

	s := Snapshot{
		OpTotal:  make(map[[3]string]int64, len(opTotal)),
		ErrTotal: make(map[[2]string]int64, len(errTotal)),
		AvgDur:   make(map[[2]string]float64, len(durSum)),
	}
	for k, v := range opTotal {
		s.OpTotal[k] = v
	}
	for k, v := range errTotal {
		s.ErrTotal[k] = v
	}
	for k, sum := range durSum {
		if n := durCount[k]; n > 0 {
			s.AvgDur[k] = float64(sum) / float64(n)
		}
	}
	return s
}

// resetMetrics clears every counter. Test-only.
func resetMetrics() {
	mu.Lock()
	opTotal = map[[3]string]int64{}
	errTotal = map[[2]string]int64{}
	durSum = map[[2]string]int64{}
	durCount = map[[2]string]int64{}
	mu.Unlock()
}
