package cluster

import (
	"fmt"
	"sort"
)

// SortKey selects the ordering of substantial clusters in reports.
type SortKey string

const (
	// SortBySize orders clusters by descending member count.
	SortBySize SortKey = "size"
	// SortByCoherence orders clusters by ascending mean intra-cluster
	// distance, tightest first.
	SortByCoherence SortKey = "coherence"
)

// ParseSortKey validates a user-supplied sort key string.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortBySize, SortByCoherence:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("sorting must be %q or %q, got %q", SortBySize, SortByCoherence, s)
}

// Group is one substantial cluster ready for rendering.
type Group struct {
	Members   []int // document indices, ascending
	Coherence float64
}

// Organized is a partition split and ordered for reporting: substantial
// clusters (two or more members) sorted by the active key, and one
// miscellaneous bucket holding every singleton's document index in the
// clusters' original order.
type Organized struct {
	Substantial []Group
	Misc        []int
}

// Organize splits a partition into substantial clusters and the
// miscellaneous bucket and sorts the substantial part by key. Both sorts
// are stable over the partition's original cluster order, and the bucket
// keeps the singletons' original relative order.
func Organize(p Partition, coherences []float64, key SortKey) (*Organized, error) {
	if len(coherences) != len(p) {
		return nil, fmt.Errorf("coherence scores (%d) do not match partition size (%d)", len(coherences), len(p))
	}

	out := &Organized{}
	for i, members := range p {
		if len(members) > 1 {
			out.Substantial = append(out.Substantial, Group{Members: members, Coherence: coherences[i]})
		} else {
			out.Misc = append(out.Misc, members...)
		}
	}

	switch key {
	case SortBySize:
		sort.SliceStable(out.Substantial, func(i, j int) bool {
			return len(out.Substantial[i].Members) > len(out.Substantial[j].Members)
		})
	case SortByCoherence:
		sort.SliceStable(out.Substantial, func(i, j int) bool {
			return out.Substantial[i].Coherence < out.Substantial[j].Coherence
		})
	default:
		return nil, fmt.Errorf("sorting must be %q or %q, got %q", SortBySize, SortByCoherence, key)
	}
	return out, nil
}
