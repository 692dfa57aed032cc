package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the retrieval pipeline.
var (
	// ErrIndexWrite marks a persistence failure during ingestion. Write
	// failures propagate: silent data loss is not acceptable.
	ErrIndexWrite = errors.New("index write failed")

	// ErrIndexRead marks a persistence failure during retrieval. Callers
	// degrade reads to an empty result rather than failing the request.
	ErrIndexRead = errors.New("index read failed")

	// ErrNoBackend indicates no language-model backend is configured. The
	// synthesizer converts this into the deterministic fallback path.
	ErrNoBackend = errors.New("no language model backend configured")

	ErrEmptyTenant   = errors.New("tenant id is empty")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrEmptyDocument = errors.New("document has no extractable text")
)

// BackendError wraps a language-model failure with its coarse cause. The
// distinction is informational: it is surfaced for logging, never used to
// change retrieval behavior.
type BackendError struct {
	Kind    BackendErrKind
	Wrapped error
}

// BackendErrKind classifies a backend failure.
type BackendErrKind string

const (
	BackendAuth      BackendErrKind = "auth"
	BackendQuota     BackendErrKind = "quota"
	BackendRateLimit BackendErrKind = "rate_limit"
	BackendTransport BackendErrKind = "transport"
)

func (e *BackendError) Error() string {
	return fmt.Sprintf("llm backend: %s: %v", e.Kind, e.Wrapped)
}

func (e *BackendError) Unwrap() error { return e.Wrapped }

// NewBackendError wraps err with a failure kind.
func NewBackendError(kind BackendErrKind, err error) *BackendError {
	return &BackendError{Kind: kind, Wrapped: err}
}
