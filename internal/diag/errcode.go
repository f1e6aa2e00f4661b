package diag

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"blockrandomizer/pkg/contract"
)

// Code is the minimal error classification code, used only for
// log/metric aggregation, decoupled from process exit codes.
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNetwork   Code = "network"
	CodeIO        Code = "io"
	CodeInvariant Code = "invariant"
	CodeLogicBug  Code = "logic_bug"
	CodeCancel    Code = "cancel"
)

// Classify sorts err into the minimal classification. Relies only on
// sentinel errors and stdlib error types, never string matching.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	// Logic bugs: these can only stem from a bug in the randomizer
	// itself, never from caller input (§7/§8).
	if errors.Is(err, contract.ErrInvalidChunkBounds) || errors.Is(err, contract.ErrLogicMangledPermutation) {
		return CodeLogicBug
	}
	if errors.Is(err, contract.ErrInvalidTimeline) ||
		errors.Is(err, contract.ErrUnsupportedStorage) ||
		errors.Is(err, contract.ErrUnsupportedElementType) ||
		errors.Is(err, contract.ErrEpochUnderflow) ||
		errors.Is(err, contract.ErrPathInvalid) ||
		errors.Is(err, contract.ErrInvariantViolation) {
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}

// NowUTC returns an RFC3339 UTC timestamp, used for the structured
// log "ts" field.
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
