package embedding

import "errors"

var (
	// ErrEmptyInput indicates the text to embed was blank after trimming.
	ErrEmptyInput = errors.New("empty input text")

	// ErrProvider indicates the embedding provider call failed. The cause is
	// wrapped; callers decide whether to retry or skip.
	ErrProvider = errors.New("embedding provider error")

	// ErrEmbedderRequired indicates no embedder was supplied.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCacheRequired indicates no cache repository was supplied.
	ErrCacheRequired = errors.New("cache repository required")
)
