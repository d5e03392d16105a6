package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexEmpty is returned by a vector index query when no entries exist.
	ErrIndexEmpty = errors.New("vector index is empty")

	// ErrEmptyText is returned when an empty string is submitted for
	// embedding. Embedding empty text would produce a degenerate vector
	// that ranks arbitrarily at query time, so it is rejected up front.
	ErrEmptyText = errors.New("cannot embed empty text")
)

// MalformedRecordError reports a source row missing a required field or
// carrying one of the wrong shape. Recoverable: ingestion skips the row.
type MalformedRecordError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: field %q: %s", e.Row, e.Field, e.Reason)
}

// DimensionMismatchError reports a vector whose length disagrees with the
// index's configured dimension.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: index expects %d, got %d", e.Want, e.Got)
}

// EmbeddingError wraps a model or backend failure during embedding.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string { return "embedding failed: " + e.Cause.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Cause }

// RerankerError wraps a cross-encoder backend failure.
type RerankerError struct {
	Cause error
}

func (e *RerankerError) Error() string { return "rerank failed: " + e.Cause.Error() }
func (e *RerankerError) Unwrap() error { return e.Cause }

// RetrievalError is the single terminal error surfaced by the retrieval
// pipeline, wrapping the first fatal cause.
type RetrievalError struct {
	Cause error
}

func (e *RetrievalError) Error() string { return "retrieval failed: " + e.Cause.Error() }
func (e *RetrievalError) Unwrap() error { return e.Cause }
