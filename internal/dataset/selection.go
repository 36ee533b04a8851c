package dataset

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// AllColumnsKey is the sentinel that expands a selection to every column.
	AllColumnsKey = "_all"

	// DefaultPrimaryColumn is always part of a selection unless the
	// sentinel is used. Issue exports carry the main free text here.
	DefaultPrimaryColumn = "Summary"
)

// MissingColumnsError reports requested columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("columns missing from header: %s", strings.Join(e.Columns, ", "))
}

// Selection is a resolved, validated set of columns to include in
// documents. Construct it with Resolve; the zero value selects nothing.
type Selection struct {
	columns map[string]bool
	// canon is the selected columns in header order, joined. Cache keys
	// and logs use it so equal selections always compare equal.
	canon string
}

// Resolve validates requested column names against the dataset header and
// returns the effective selection. The sentinel AllColumnsKey expands to
// the full header; otherwise primary is implicitly included. Any requested
// column not present in the header fails with *MissingColumnsError before
// any embedding work happens.
func Resolve(d *Dataset, requested []string, primary string) (Selection, error) {
	if primary == "" {
		primary = DefaultPrimaryColumn
	}

	want := make(map[string]bool, len(requested)+1)
	all := false
	for _, col := range requested {
		col = trimKey(col)
		if col == "" {
			continue
		}
		if col == AllColumnsKey {
			all = true
			continue
		}
		want[col] = true
	}

	if all {
		want = make(map[string]bool, len(d.header))
		for _, col := range d.header {
			want[col] = true
		}
	} else {
		want[primary] = true
		var missing []string
		for col := range want {
			if d.columnIndex(col) < 0 {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			// Deterministic error text regardless of map order.
			sort.Strings(missing)
			return Selection{}, &MissingColumnsError{Columns: missing}
		}
	}

	var canon []string
	for _, col := range d.header {
		if want[col] {
			canon = append(canon, col)
		}
	}
	return Selection{columns: want, canon: strings.Join(canon, "\x1f")}, nil
}

// Contains reports whether the selection includes the named column.
func (s Selection) Contains(name string) bool { return s.columns[name] }

// Key is a canonical string form of the selection, stable across equal
// selections. Used together with the dataset fingerprint as a cache key.
func (s Selection) Key() string { return s.canon }

// Columns returns the selected columns in header order.
func (s Selection) Columns() []string {
	if s.canon == "" {
		return nil
	}
	return strings.Split(s.canon, "\x1f")
}
