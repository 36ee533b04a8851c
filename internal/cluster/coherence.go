package cluster

// Coherence computes the mean pairwise cosine distance among the given
// member indices. Lower values mean a tighter cluster; a cluster with
// fewer than two members scores exactly 0. The result depends only on the
// unordered member set.
func Coherence(members []int, embeddings [][]float32) float64 {
	if len(members) < 2 {
		return 0.0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += CosineDistance(embeddings[members[i]], embeddings[members[j]])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// Coherences scores every cluster of a partition, aligned by position.
func Coherences(p Partition, embeddings [][]float32) []float64 {
	scores := make([]float64, len(p))
	for i, members := range p {
		scores[i] = Coherence(members, embeddings)
	}
	return scores
}
