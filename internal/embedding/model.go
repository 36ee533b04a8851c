// Package embedding provides text embedding via an external
// OpenAI-compatible service and the single-slot cache that keeps one
// embedding set per dataset and column selection.
package embedding

import "context"

// Model is an external text-embedding model. Implementations must return
// one vector per input text, in input order.
type Model interface {
	// Name returns the model identifier sent to the service.
	Name() string

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// EmbedBatch generates embeddings for the given texts, preserving
	// order. One call covers a whole document set; no batching contract
	// beyond that is assumed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases model resources.
	Close() error
}
