package contract

import "errors"

// Error kinds and disposition (spec §7). All are surfaced to the
// caller; the core never swallows them. Benign end-of-epoch is a
// normal at_end_of_epoch signal, never one of these.
var (
	// ErrInvalidTimeline: §3 invariants violated at construction. Fatal;
	// construction fails.
	ErrInvalidTimeline = errors.New("block randomizer: invalid timeline")
	// ErrInvalidChunkBounds: window_begin > k or window_end <= k after
	// chunk randomization. Fatal; logic bug.
	ErrInvalidChunkBounds = errors.New("block randomizer: invalid chunk bounds")
	// ErrLogicMangledPermutation: post-shuffle validation found a
	// misplaced element. Fatal; logic bug.
	ErrLogicMangledPermutation = errors.New("block randomizer: randomization logic mangled")
	// ErrUnsupportedStorage: unknown storage kind in a sample record.
	// Fatal per-batch.
	ErrUnsupportedStorage = errors.New("block randomizer: unsupported storage type")
	// ErrUnsupportedElementType: element type outside the declared set.
	// Fatal at configuration.
	ErrUnsupportedElementType = errors.New("block randomizer: unsupported element type")
	// ErrEpochUnderflow: read_minibatch called before start_epoch. Fatal.
	ErrEpochUnderflow = errors.New("block randomizer: read before start of epoch")
	// ErrPathInvalid: a chunk/artifact identifier maps to an invalid or
	// out-of-bounds path (e.g. absolute path or '..' escape).
	ErrPathInvalid = errors.New("block randomizer: path invalid")
	// ErrInvariantViolation: generic domain-invariant sentinel used by
	// collaborators that do not have a more specific kind above.
	ErrInvariantViolation = errors.New("block randomizer: invariant violation")
)
