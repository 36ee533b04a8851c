// Package report renders an organized clustering result as delimited
// tabular and hypertext documents, and owns artifact naming plus the
// retry-on-write policy for persisting them.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/thebtf/issuecluster/internal/pipeline"
)

// MiscMarker labels the trailing section holding every singleton row.
const MiscMarker = "Miscellaneous cluster"

// clusterMarker formats the marker row preceding a substantial cluster.
func clusterMarker(coherence float64) string {
	return fmt.Sprintf("Cluster items distance: %.4f", coherence)
}

// clusterSeparatorLines is how many blank rows separate substantial
// clusters in the tabular export.
const clusterSeparatorLines = 4

// WriteTabular renders the result as a delimited table: the header row,
// then per substantial cluster a coherence marker row, the member rows
// verbatim and a blank-row separator, then the miscellaneous marker row
// and every singleton row. Output is byte-deterministic for equal results.
func WriteTabular(w io.Writer, res *pipeline.Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = res.Dataset.Delimiter()

	if err := cw.Write(res.Dataset.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, group := range res.Organized.Substantial {
		if err := cw.Write([]string{clusterMarker(group.Coherence)}); err != nil {
			return fmt.Errorf("write cluster marker: %w", err)
		}
		for _, idx := range group.Members {
			if err := cw.Write(res.Dataset.Row(idx)); err != nil {
				return fmt.Errorf("write row %d: %w", idx, err)
			}
		}
		for i := 0; i < clusterSeparatorLines; i++ {
			if err := cw.Write([]string{""}); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
	}

	if err := cw.Write([]string{MiscMarker}); err != nil {
		return fmt.Errorf("write miscellaneous marker: %w", err)
	}
	for _, idx := range res.Organized.Misc {
		if err := cw.Write(res.Dataset.Row(idx)); err != nil {
			return fmt.Errorf("write row %d: %w", idx, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
