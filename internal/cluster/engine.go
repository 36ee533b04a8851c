package cluster

import (
	"fmt"
	"math"
)

// Partition maps cluster positions to ordered document indices. Clusters
// are ordered by their smallest member index, members ascend within a
// cluster, and every document index 0..N-1 appears in exactly one cluster.
type Partition [][]int

// Assign runs hierarchical agglomerative clustering with complete linkage
// over cosine distance. There is no fixed cluster count: merging proceeds
// greedily in increasing order of linkage distance and stops once the
// minimum inter-cluster distance exceeds threshold. Ties break on the
// lowest cluster index, so the result is deterministic for identical
// embeddings and threshold.
//
// Zero documents yield an empty partition and a single document yields one
// singleton; neither is an error.
func Assign(embeddings [][]float32, threshold float64) (Partition, error) {
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("distance threshold must be a non-negative number, got %v", threshold)
	}

	n := len(embeddings)
	switch n {
	case 0:
		return Partition{}, nil
	case 1:
		return Partition{{0}}, nil
	}

	// Pairwise document distances, computed once.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := CosineDistance(embeddings[i], embeddings[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	// Active clusters, each holding member indices in ascending order.
	// linkage[i][j] is the complete-linkage distance between active
	// clusters i and j; merged-away clusters are marked dead.
	members := make([][]int, n)
	for i := range members {
		members[i] = []int{i}
	}
	linkage := dist
	dead := make([]bool, n)
	remaining := n

	for remaining > 1 {
		best := math.Inf(1)
		bi, bj := -1, -1
		for i := 0; i < n; i++ {
			if dead[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if dead[j] {
					continue
				}
				if linkage[i][j] < best {
					best = linkage[i][j]
					bi, bj = i, j
				}
			}
		}
		if best > threshold {
			break
		}

		// Merge bj into bi (the lower index survives) and update the
		// complete linkage: d(A∪B, C) = max(d(A,C), d(B,C)).
		members[bi] = mergeSorted(members[bi], members[bj])
		members[bj] = nil
		dead[bj] = true
		remaining--
		for k := 0; k < n; k++ {
			if dead[k] || k == bi {
				continue
			}
			if linkage[bj][k] > linkage[bi][k] {
				linkage[bi][k] = linkage[bj][k]
				linkage[k][bi] = linkage[bj][k]
			}
		}
	}

	// Surviving clusters already sit in smallest-member order because the
	// lower index always survives a merge.
	part := make(Partition, 0, remaining)
	for i := 0; i < n; i++ {
		if !dead[i] {
			part = append(part, members[i])
		}
	}
	return part, nil
}

// mergeSorted merges two ascending index slices into one.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
