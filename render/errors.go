package render

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentStoreRequired = errors.New("document store is required")
	ErrAssemblerRequired     = errors.New("assembler is required")
	ErrInvalidPoolSize       = errors.New("pool size must be at least 1")
	ErrInvalidOpenRate       = errors.New("open rate must be positive")

	// ErrDocumentMissing is returned by a DocumentStore when a source document does not exist.
	ErrDocumentMissing = errors.New("document missing")
	// ErrDocumentRenderFailure marks a document that was found but could not be annotated or saved.
	ErrDocumentRenderFailure = errors.New("document render failure")
	// ErrNoDocumentsRendered is returned when no document in the plan rendered successfully.
	ErrNoDocumentsRendered = errors.New("no documents rendered")
)

// ItemError records a document that was skipped during a render.
type ItemError struct {
	SourceID string
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.SourceID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
