package core

import (
	"context"
)

// Classifier classifies message text with the currently loaded model
type Classifier interface {
	// Classify scores text and returns the analysis result
	Classify(ctx context.Context, text string) (*SpamAnalysisResult, error)

	// ModelID identifies the model that Classify currently uses
	ModelID() string
}

// CacheRepository defines the interface for caching classification results
type CacheRepository interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
