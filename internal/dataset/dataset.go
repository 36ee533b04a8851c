// Package dataset provides delimited tabular datasets and the document
// assembly that feeds the embedding step.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// DefaultDelimiter is the field delimiter used by issue-tracker exports.
const DefaultDelimiter = ';'

// Dataset is an immutable delimited table: an ordered header and ordered
// rows aligned to it by position. Rows may be ragged on input; missing
// cells read back as empty strings.
type Dataset struct {
	header []string
	rows   [][]string
	delim  rune

	fingerprint string
}

// New creates a Dataset from a header and rows. The inputs are copied so
// later mutation by the caller cannot change the dataset.
func New(header []string, rows [][]string, delim rune) *Dataset {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	h := make([]string, len(header))
	copy(h, header)
	r := make([][]string, len(rows))
	for i, row := range rows {
		r[i] = make([]string, len(row))
		copy(r[i], row)
	}
	return &Dataset{header: h, rows: r, delim: delim, fingerprint: fingerprint(h, r)}
}

// Decode reads a delimited byte stream into a Dataset. The first record is
// the header. Ragged records are accepted as-is; Cell pads them on read.
func Decode(r io.Reader, delim rune) (*Dataset, error) {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode delimited input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("decode delimited input: no header row")
	}
	return &Dataset{
		header:      records[0],
		rows:        records[1:],
		delim:       delim,
		fingerprint: fingerprint(records[0], records[1:]),
	}, nil
}

// Encode writes the dataset back out in its delimited form.
func (d *Dataset) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = d.delim
	if err := cw.Write(d.header); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, row := range d.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Header returns the ordered column names.
func (d *Dataset) Header() []string { return d.header }

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Delimiter returns the field delimiter the dataset was decoded with.
func (d *Dataset) Delimiter() rune { return d.delim }

// Row returns data row i as stored, possibly shorter than the header.
func (d *Dataset) Row(i int) []string { return d.rows[i] }

// Rows returns all data rows.
func (d *Dataset) Rows() [][]string { return d.rows }

// Cell returns the value of column col in row i, or "" when the row is
// ragged and does not reach that column.
func (d *Dataset) Cell(i, col int) string {
	row := d.rows[i]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// Fingerprint returns a stable content hash of the header and rows. The
// embedding cache keys on it, so any change to the data yields a new key.
// Computed at construction; the worker reads it from concurrent requests.
func (d *Dataset) Fingerprint() string { return d.fingerprint }

// fingerprint hashes the header and rows with length-prefixed fields so
// shifting bytes across cell or row boundaries changes the digest.
func fingerprint(header []string, rows [][]string) string {
	h := sha256.New()
	writeField := func(s string) {
		var n [8]byte
		l := len(s)
		for i := 0; i < 8; i++ {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		io.WriteString(h, s)
	}
	for _, col := range header {
		writeField(col)
	}
	for _, row := range rows {
		writeField("\x00row")
		for _, cell := range row {
			writeField(cell)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// columnIndex returns the position of name in the header, or -1.
func (d *Dataset) columnIndex(name string) int {
	for i, col := range d.header {
		if col == name {
			return i
		}
	}
	return -1
}

// String is a short human-readable description for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset(%d columns, %d rows)", len(d.header), len(d.rows))
}

// trimKey normalizes a user-supplied column name.
func trimKey(s string) string { return strings.TrimSpace(s) }
