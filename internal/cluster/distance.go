// Package cluster groups embedded documents by hierarchical agglomerative
// clustering and organizes the result for reporting.
package cluster

import "math"

// CosineDistance computes the cosine distance (1 - cosine similarity)
// between two vectors. A zero-magnitude vector is maximally distant from
// everything (similarity 0, distance 1). Vectors must have equal length;
// the shorter length is used if they differ so the pipeline never panics
// on a misbehaving embedding service.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}
