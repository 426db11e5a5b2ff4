package core

import "errors"

var (
	// ErrInput is returned for malformed or unreadable corpora and text
	ErrInput = errors.New("invalid input")

	// ErrEmptyCorpus is returned when fitting on no documents or no terms
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrDimensionMismatch is returned when features, labels and weights disagree in size
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMissingArtifact is returned when no trained model exists in the store
	ErrMissingArtifact = errors.New("model artifact missing")

	// ErrModelCorrupt is returned when stored artifacts cannot be decoded or do not match
	ErrModelCorrupt = errors.New("model artifact corrupt")
)
