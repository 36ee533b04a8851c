// Package pipeline runs the clustering engine end to end: document
// assembly, cached embedding, hierarchical clustering, coherence scoring
// and organizing. Both front ends (one-shot CLI and HTTP worker) drive
// this one implementation.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/issuecluster/internal/cluster"
	"github.com/thebtf/issuecluster/internal/dataset"
	"github.com/thebtf/issuecluster/internal/embedding"
)

// Options are the per-run clustering parameters.
type Options struct {
	// Columns are the requested column names; dataset.AllColumnsKey
	// expands to the full header.
	Columns []string

	// PrimaryColumn is always included in the selection. Empty means
	// dataset.DefaultPrimaryColumn.
	PrimaryColumn string

	// Threshold is the merge-stop distance; higher values produce fewer,
	// larger clusters. Practical range for cosine distance is 0.2-0.7.
	Threshold float64

	// SortKey orders substantial clusters in the result.
	SortKey string
}

// Result is one full clustering pass, ready for rendering.
type Result struct {
	Dataset   *dataset.Dataset
	Organized *cluster.Organized

	// TotalClusters counts every cluster, singletons included.
	TotalClusters int
	// SubstantialClusters counts clusters with two or more members.
	SubstantialClusters int
}

// Runner owns the embedding cache and executes clustering passes against
// it. Re-running with only a new threshold reuses cached embeddings.
type Runner struct {
	cache *embedding.Cache
}

// NewRunner creates a runner on top of an embedding cache.
func NewRunner(cache *embedding.Cache) *Runner {
	return &Runner{cache: cache}
}

// Run executes one clustering pass. All configuration is validated before
// the embedding cache is consulted, so a bad sort key or column name never
// costs a model call.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	sortKey, err := cluster.ParseSortKey(opts.SortKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 {
		return nil, configErr("distance threshold must be a non-negative number, got %v", opts.Threshold)
	}

	sel, err := dataset.Resolve(ds, opts.Columns, opts.PrimaryColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	start := time.Now()
	vecs, err := r.cache.Embeddings(ctx, ds, sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	part, err := cluster.Assign(vecs, opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClustering, err)
	}

	organized, err := cluster.Organize(part, cluster.Coherences(part, vecs), sortKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClustering, err)
	}

	res := &Result{
		Dataset:             ds,
		Organized:           organized,
		TotalClusters:       len(part),
		SubstantialClusters: len(organized.Substantial),
	}

	log.Info().
		Int("rows", ds.Len()).
		Float64("threshold", opts.Threshold).
		Str("sorting", string(sortKey)).
		Int("total_clusters", res.TotalClusters).
		Int("substantial_clusters", res.SubstantialClusters).
		Dur("elapsed", time.Since(start)).
		Msg("Clustering pass complete")

	return res, nil
}
