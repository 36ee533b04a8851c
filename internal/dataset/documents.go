package dataset

import "strings"

// BuildDocuments assembles one document string per row: the cells of the
// selected columns in header order, each followed by the dataset delimiter.
// Documents are positional, documents[i] belongs to row i. Separator
// characters inside cell values are not escaped; a cell containing the
// delimiter blurs the column boundary in the document. Known limitation,
// fixing it would change embeddings for existing data.
func BuildDocuments(d *Dataset, sel Selection) []string {
	docs := make([]string, d.Len())
	sep := string(d.delim)

	var selected []int
	for i, col := range d.header {
		if sel.Contains(col) {
			selected = append(selected, i)
		}
	}

	var b strings.Builder
	for i := range docs {
		b.Reset()
		for _, col := range selected {
			b.WriteString(d.Cell(i, col))
			b.WriteString(sep)
		}
		docs[i] = b.String()
	}
	return docs
}
