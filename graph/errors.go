package graph

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the graph core, per the error taxonomy: writers and
// readers convert store errors into these; none are retried internally.
var (
	// ErrInvalidState is returned when an EdgeBatch is mutated after Execute.
	// It is a programmer error and must not be retried.
	ErrInvalidState = errors.New("graph: edge batch is not open")

	// ErrBackendUnavailable is returned when the column-store session is
	// missing or the store is unreachable. Callers may retry with backoff.
	ErrBackendUnavailable = errors.New("graph: backend unavailable")

	// ErrCounterLag is returned when content rows were committed but the
	// follow-up counter increment failed. Safe to retry: counters are
	// additive and the same input can be resubmitted.
	ErrCounterLag = errors.New("graph: counter increment lagging behind committed content")

	// ErrStreamFailed is returned inline in a traversal stream when a chunk
	// read fails. Already-yielded items remain valid; callers must restart
	// traversal from the beginning.
	ErrStreamFailed = errors.New("graph: traversal stream failed")

	// ErrCorrupted is returned when a PK-map value fails to deserialize back
	// into its declared type. Non-retriable; surface for operator attention.
	ErrCorrupted = errors.New("graph: corrupted pk-map value")
)

// PartialWriteError reports that a content batch only partially succeeded.
// Confirmed pairs are already durable and idempotent; the remainder is safe
// to resubmit as-is.
type PartialWriteError struct {
	Confirmed int
	Remainder []HashPair
	Cause     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("graph: partial write: %d confirmed, %d remaining: %v", e.Confirmed, len(e.Remainder), e.Cause)
}

func (e *PartialWriteError) Unwrap() error { return e.Cause }
