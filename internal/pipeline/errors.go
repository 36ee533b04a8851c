package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors classify pipeline failures for front ends. Wrapped
// causes stay reachable through errors.Is / errors.As.
var (
	// ErrConfig marks invalid caller input: unknown sort key, missing
	// columns, bad threshold. Raised before any embedding work.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmbedding marks a failure of the external embedding service.
	// The embedding cache is left unchanged.
	ErrEmbedding = errors.New("embedding failed")

	// ErrClustering marks a failure of the clustering step. Degenerate
	// input (zero or one document) is a defined case, not an error.
	ErrClustering = errors.New("clustering failed")
)

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
