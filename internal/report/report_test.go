package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/issuecluster/internal/cluster"
	"github.com/thebtf/issuecluster/internal/dataset"
	"github.com/thebtf/issuecluster/internal/pipeline"
)

func testResult() *pipeline.Result {
	ds := dataset.New(
		[]string{"Issue key", "Summary"},
		[][]string{
			{"A-1", "Cannot login"},
			{"A-2", "Login fails"},
			{"A-3", "Export to PDF broken"},
		},
		';',
	)
	return &pipeline.Result{
		Dataset: ds,
		Organized: &cluster.Organized{
			Substantial: []cluster.Group{{Members: []int{0, 1}, Coherence: 0.1234}},
			Misc:        []int{2},
		},
		TotalClusters:       2,
		SubstantialClusters: 1,
	}
}

// TestWriteTabular tests the full structure of the tabular export: header
// row, coherence marker, member rows, blank separator, miscellaneous
// marker and singleton rows.
func TestWriteTabular(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTabular(&buf, testResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10)

	assert.Equal(t, "Issue key;Summary", lines[0])
	assert.Equal(t, "Cluster items distance: 0.1234", lines[1])
	assert.Equal(t, "A-1;Cannot login", lines[2])
	assert.Equal(t, "A-2;Login fails", lines[3])
	for i := 4; i < 8; i++ {
		assert.Equal(t, "", lines[i])
	}
	assert.Equal(t, "Miscellaneous cluster", lines[8])
	assert.Equal(t, "A-3;Export to PDF broken", lines[9])
}

// TestWriteTabular_RowConservation tests that every data row appears
// exactly once across the rendered report.
func TestWriteTabular_RowConservation(t *testing.T) {
	res := testResult()
	var buf bytes.Buffer
	require.NoError(t, WriteTabular(&buf, res))

	out := buf.String()
	for i := 0; i < res.Dataset.Len(); i++ {
		key := res.Dataset.Cell(i, 0)
		assert.Equal(t, 1, strings.Count(out, key), "row %s", key)
	}
}

// TestWriteTabular_EmptyResult tests that an empty dataset renders only
// the header and the miscellaneous marker.
func TestWriteTabular_EmptyResult(t *testing.T) {
	res := &pipeline.Result{
		Dataset:   dataset.New([]string{"Issue key", "Summary"}, nil, ';'),
		Organized: &cluster.Organized{},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTabular(&buf, res))
	assert.Equal(t, "Issue key;Summary\nMiscellaneous cluster\n", buf.String())
}

// TestWriteTabular_Deterministic tests byte equality across repeated
// renders.
func TestWriteTabular_Deterministic(t *testing.T) {
	res := testResult()
	var a, b bytes.Buffer
	require.NoError(t, WriteTabular(&a, res))
	require.NoError(t, WriteTabular(&b, res))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

// TestWriteHypertext tests the HTML structure: marker rows, repeated
// header rows and issue-key hyperlinks.
func TestWriteHypertext(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHypertext(&buf, testResult(), HypertextOptions{}))
	out := buf.String()

	assert.Contains(t, out, "<title>Clusters</title>")
	assert.Contains(t, out, "Cluster items distance: 0.1234")
	assert.Contains(t, out, "Miscellaneous cluster")
	assert.Contains(t, out, `<a href="https://issues.redhat.com/browse/A-1">A-1</a>`)
	assert.Contains(t, out, `<a href="https://issues.redhat.com/browse/A-3">A-3</a>`)
	// One header row per substantial cluster plus one for miscellaneous.
	assert.Equal(t, 2, strings.Count(out, "<th>Issue key</th>"))
}

// TestWriteHypertext_Escaping tests that markup in cell values is
// escaped.
func TestWriteHypertext_Escaping(t *testing.T) {
	ds := dataset.New(
		[]string{"Summary"},
		[][]string{{`<script>alert("x")</script>`}, {"b & c"}},
		';',
	)
	res := &pipeline.Result{
		Dataset: ds,
		Organized: &cluster.Organized{
			Substantial: []cluster.Group{{Members: []int{0, 1}, Coherence: 0.5}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHypertext(&buf, res, HypertextOptions{}))
	out := buf.String()

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "b &amp; c")
}

// TestWriteHypertext_NoIssueKeyColumn tests plain-text rendering when the
// dataset has no "Issue key" column.
func TestWriteHypertext_NoIssueKeyColumn(t *testing.T) {
	ds := dataset.New([]string{"Summary"}, [][]string{{"one"}}, ';')
	res := &pipeline.Result{
		Dataset:   ds,
		Organized: &cluster.Organized{Misc: []int{0}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHypertext(&buf, res, HypertextOptions{}))
	assert.NotContains(t, buf.String(), "<a href=")
}

// TestWriteHypertext_CustomTracker tests the tracker base override.
func TestWriteHypertext_CustomTracker(t *testing.T) {
	var buf bytes.Buffer
	opts := HypertextOptions{TrackerBaseURL: "https://jira.example.com/"}
	require.NoError(t, WriteHypertext(&buf, testResult(), opts))
	assert.Contains(t, buf.String(), `<a href="https://jira.example.com/browse/A-1">`)
}

// TestOutputPath tests derived artifact names.
func TestOutputPath(t *testing.T) {
	assert.Equal(t, "issues_clustered.csv", OutputPath("issues.csv", "_clustered"))
	assert.Equal(t, "data/export_clustered.csv", OutputPath("data/export.csv", "_clustered"))
}

// TestHypertextPath tests the tabular-to-hypertext name derivation.
func TestHypertextPath(t *testing.T) {
	assert.Equal(t, "issues_clustered.html", HypertextPath("issues_clustered.csv"))
	assert.Equal(t, "report.html", HypertextPath("report.tsv"))
}

// TestWritePolicy_RetriesWithAck tests that the policy re-attempts while
// the acknowledgement hook allows it.
func TestWritePolicy_RetriesWithAck(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/out.csv" // parent missing, first writes fail

	acks := 0
	policy := WritePolicy{
		Ack: func(err error) bool {
			acks++
			if acks == 2 {
				// Operator "resolves the problem".
				require.NoError(t, os.MkdirAll(dir+"/sub", 0o750))
			}
			return acks <= 3
		},
	}

	err := policy.WriteFile(path, func(w *bytes.Buffer) error {
		_, err := w.WriteString("data")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, acks)
}

// TestWritePolicy_BoundedAttempts tests that MaxAttempts stops retrying
// and surfaces ErrPersistence.
func TestWritePolicy_BoundedAttempts(t *testing.T) {
	path := t.TempDir() + "/missing/out.csv"

	attempts := 0
	policy := WritePolicy{
		MaxAttempts: 3,
		Ack: func(err error) bool {
			attempts++
			return true
		},
	}

	err := policy.WriteFile(path, func(w *bytes.Buffer) error { return nil })
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 2, attempts)
}

// TestWritePolicy_NilAckFailsFast tests that without an acknowledgement
// hook the first failure is final.
func TestWritePolicy_NilAckFailsFast(t *testing.T) {
	err := WritePolicy{}.WriteFile(t.TempDir()+"/missing/out.csv", func(w *bytes.Buffer) error {
		return nil
	})
	require.ErrorIs(t, err, ErrPersistence)
}

// TestWritePolicy_RenderError tests that a render failure is not retried.
func TestWritePolicy_RenderError(t *testing.T) {
	calls := 0
	err := WritePolicy{Ack: func(error) bool { calls++; return true }}.
		WriteFile(t.TempDir()+"/out.csv", func(w *bytes.Buffer) error {
			return fmt.Errorf("render broke")
		})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, calls)
}
