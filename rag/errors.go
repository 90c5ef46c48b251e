package rag

import "errors"

var (
	// ErrMalformedStructuredAnswer indicates the generation provider returned
	// output that does not parse into the structured answer schema.
	ErrMalformedStructuredAnswer = errors.New("malformed structured answer")

	// ErrGeneratorRequired indicates no generator was supplied.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrOrchestratorRequired indicates no search orchestrator was supplied.
	ErrOrchestratorRequired = errors.New("search orchestrator required")
)
