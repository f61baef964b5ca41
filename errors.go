package archer

import "errors"

// Sentinel errors returned by the core index and query layers. Callers
// compare with errors.Is; wrapped IO failures carry the underlying
// *os.PathError or similar via %w.
var (
	// ErrNotFound means a term, label, or document id has no entry.
	// Evaluator-facing callers never see this directly: NotFound at the
	// QueryIndex layer is absorbed into an empty result stream.
	ErrNotFound = errors.New("archer: not found")

	// ErrMonotonicityViolated means an append supplied a document id
	// smaller than the last one written for that posting vector, or the
	// same document id with a position not greater than the last one.
	ErrMonotonicityViolated = errors.New("archer: monotonicity violated")

	// ErrFormat means on-disk data failed a structural check (bad magic,
	// truncated segment, label-extent spanning documents).
	ErrFormat = errors.New("archer: format error")

	// ErrIO wraps an underlying filesystem failure.
	ErrIO = errors.New("archer: io error")

	// ErrCapacityExceeded means a fixed-size limit (e.g. the number of
	// labels simultaneously active on one position) was exceeded.
	ErrCapacityExceeded = errors.New("archer: capacity exceeded")

	// ErrOverlappingLabel means an ingest caller tried to open a label
	// that is already open on the same label stack.
	ErrOverlappingLabel = errors.New("archer: overlapping label region")

	// ErrNoCurrentRecord means a cursor primitive was asked for the
	// current record before any record had been read.
	ErrNoCurrentRecord = errors.New("archer: no current record")
)
