package search

import "errors"

var (
	// ErrMissingID indicates an entry without an id was passed for indexing.
	ErrMissingID = errors.New("entry id required")

	// ErrEmptyContent indicates an entry had no extractable text. During batch
	// indexing this is counted as a failure, never a batch abort.
	ErrEmptyContent = errors.New("entry has no extractable text")

	// ErrVectorRepositoryRequired indicates no vector repository was supplied.
	ErrVectorRepositoryRequired = errors.New("vector repository required")

	// ErrEmbeddingServiceRequired indicates no embedding service was supplied.
	ErrEmbeddingServiceRequired = errors.New("embedding service required")
)
