package report

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/thebtf/issuecluster/internal/pipeline"
)

// DefaultTrackerBaseURL is the issue-tracker browse base for "Issue key"
// hyperlinks.
const DefaultTrackerBaseURL = "https://issues.redhat.com"

// IssueKeyColumn is the column whose cells render as tracker hyperlinks.
const IssueKeyColumn = "Issue key"

// HypertextOptions configures the HTML rendering.
type HypertextOptions struct {
	// TrackerBaseURL overrides DefaultTrackerBaseURL.
	TrackerBaseURL string
}

// WriteHypertext renders the result as a minimal table-based HTML document
// with the same cluster/marker structure as the tabular export. Cell
// values are escaped; cells of the column named "Issue key" link to
// {tracker}/browse/{key}. Output is byte-deterministic for equal results.
func WriteHypertext(w io.Writer, res *pipeline.Result, opts HypertextOptions) error {
	tracker := opts.TrackerBaseURL
	if tracker == "" {
		tracker = DefaultTrackerBaseURL
	}
	tracker = strings.TrimRight(tracker, "/")

	header := res.Dataset.Header()
	hw := &htmlWriter{w: w, header: header, tracker: tracker}

	hw.raw("<html>\n<head>\n<meta charset=\"UTF-8\">\n<title>Clusters</title>\n")
	hw.raw("<style>\n")
	hw.raw("table {border-collapse: collapse; width: 100%; }\n")
	hw.raw("th, td {border: 1px solid black; padding: 8px; text-align: left;}\n")
	hw.raw(".cluster-header {background-color: #f2f2f2; font-weight: bold;}\n")
	hw.raw("</style>\n")
	hw.raw("</head>\n<body>\n")
	hw.raw("<table>\n")

	for _, group := range res.Organized.Substantial {
		hw.markerRow(clusterMarker(group.Coherence))
		hw.headerRow()
		for _, idx := range group.Members {
			hw.dataRow(res.Dataset.Row(idx))
		}
		hw.raw(fmt.Sprintf("<tr><td colspan=\"%d\">&nbsp;</td></tr>\n", len(header)))
		hw.raw(fmt.Sprintf("<tr><td colspan=\"%d\">&nbsp;</td></tr>\n", len(header)))
	}

	hw.markerRow(MiscMarker)
	hw.headerRow()
	for _, idx := range res.Organized.Misc {
		hw.dataRow(res.Dataset.Row(idx))
	}

	hw.raw("</table>\n</body>\n</html>\n")
	return hw.err
}

// htmlWriter accumulates the first write error so callers check once.
type htmlWriter struct {
	w       io.Writer
	header  []string
	tracker string
	err     error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) markerRow(text string) {
	hw.raw(fmt.Sprintf("<tr class=\"cluster-header\"><td colspan=\"%d\">%s</td></tr>\n",
		len(hw.header), html.EscapeString(text)))
}

func (hw *htmlWriter) headerRow() {
	hw.raw("<tr>")
	for _, col := range hw.header {
		hw.raw("<th>" + html.EscapeString(col) + "</th>")
	}
	hw.raw("</tr>\n")
}

func (hw *htmlWriter) dataRow(row []string) {
	hw.raw("<tr>")
	for i, cell := range row {
		if i < len(hw.header) && hw.header[i] == IssueKeyColumn {
			hw.raw(fmt.Sprintf("<td><a href=\"%s/browse/%s\">%s</a></td>",
				hw.tracker, html.EscapeString(cell), html.EscapeString(cell)))
		} else {
			hw.raw("<td>" + html.EscapeString(cell) + "</td>")
		}
	}
	hw.raw("</tr>\n")
}
