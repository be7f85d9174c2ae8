package tables

import (
	"sort"
	"strconv"
)

// Spreadsheet-format limits. MaxRowsPerSheet is the hard format cap;
// DefaultSplitRows is where a table is split into numbered continuation
// sheets by default. MaxCellChars truncates individual cell values.
const (
	MaxRowsPerSheet  = 1_048_576
	DefaultSplitRows = 500_000
	MaxCellChars     = 32_767
	MaxSheetNameLen  = 31
)

// Table is one named output table. All 26 tables are always present in the
// result, header included, even when a table has zero rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// AddRow appends a row, truncating each cell to MaxCellChars.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = Truncate(c)
	}
	t.Rows = append(t.Rows, row)
}

// Truncate caps a cell value at MaxCellChars bytes.
func Truncate(s string) string {
	if len(s) <= MaxCellChars {
		return s
	}
	return s[:MaxCellChars]
}

// Split breaks a table into parts of at most splitRows rows each.
// Continuation parts get a numeric suffix ("Activities_2", ...). splitRows
// is clamped to the sheet format's hard cap.
func Split(t *Table, splitRows int) []*Table {
	if splitRows <= 0 || splitRows > MaxRowsPerSheet {
		splitRows = MaxRowsPerSheet
	}
	if len(t.Rows) <= splitRows {
		return []*Table{t}
	}

	var parts []*Table
	for start := 0; start < len(t.Rows); start += splitRows {
		end := start + splitRows
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		name := t.Name
		if start > 0 {
			name += "_" + strconv.Itoa(len(parts)+1)
		}
		parts = append(parts, &Table{
			Name:    name,
			Columns: t.Columns,
			Rows:    t.Rows[start:end],
		})
	}
	return parts
}

// SheetNames maps table names onto valid sheet names: at most
// MaxSheetNameLen characters, collisions resolved by replacing the tail
// with a numeric suffix. Returned in table order.
func SheetNames(tables []*Table) []string {
	used := make(map[string]bool, len(tables))
	names := make([]string, len(tables))
	for i, t := range tables {
		name := t.Name
		if len(name) > MaxSheetNameLen {
			name = name[:MaxSheetNameLen]
		}
		if used[name] {
			for n := 2; ; n++ {
				suffix := "_" + strconv.Itoa(n)
				base := name
				if len(base)+len(suffix) > MaxSheetNameLen {
					base = base[:MaxSheetNameLen-len(suffix)]
				}
				candidate := base + suffix
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// ByName indexes tables for lookup in tests and exporters.
func ByName(tables []*Table) map[string]*Table {
	out := make(map[string]*Table, len(tables))
	for _, t := range tables {
		out[t.Name] = t
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
