package data

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Error variables for consistent error handling
var (
	ErrNotFound      = errors.New("dataset not found")
	ErrNotTabular    = errors.New("dataset is not tabular")
	ErrMissingColumn = errors.New("missing column")
)

// Dataset formats
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatJSON    = "json"
)

// Cell is one value of a table. A zero Cell is null.
type Cell struct {
	Valid   bool
	Text    string
	Number  float64
	Numeric bool
}

// TextCell builds a non-null textual cell
func TextCell(s string) Cell {
	return Cell{Valid: true, Text: s}
}

// NumberCell builds a non-null numeric cell
func NumberCell(v float64) Cell {
	return Cell{Valid: true, Number: v, Numeric: true, Text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// ParseCell interprets raw text the way a CSV reader would: empty is null,
// anything parseable as a float is numeric.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Valid: true, Text: raw, Number: v, Numeric: true}
	}
	return TextCell(raw)
}

// Float returns the numeric value of the cell, parsing text when needed
func (c Cell) Float() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	if c.Numeric {
		return c.Number, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Value returns the cell as a JSON friendly value
func (c Cell) Value() interface{} {
	switch {
	case !c.Valid:
		return nil
	case c.Numeric:
		return c.Number
	default:
		return c.Text
	}
}

// Table is a decoded tabular dataset with ordered columns
type Table struct {
	Columns []string
	Rows    [][]Cell

	index map[string]int
}

// NewTable builds a table. Rows shorter than the header are padded with nulls.
func NewTable(columns []string, rows [][]Cell) *Table {
	for i, row := range rows {
		if len(row) < len(columns) {
			padded := make([]Cell, len(columns))
			copy(padded, row)
			rows[i] = padded
		}
	}
	t := &Table{Columns: columns, Rows: rows}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// ColumnIndex returns the position of column name
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the header carries column name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Len returns the row count
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the value at row i of column name, null when absent
func (t *Table) Cell(i int, name string) Cell {
	j, ok := t.ColumnIndex(name)
	if !ok || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return Cell{}
	}
	return t.Rows[i][j]
}

// Where returns a table holding the rows for which keep returns true
func (t *Table) Where(keep func(row int) bool) *Table {
	rows := make([][]Cell, 0, len(t.Rows))
	for i, row := range t.Rows {
		if keep(i) {
			rows = append(rows, row)
		}
	}
	return NewTable(t.Columns, rows)
}

// Equal returns the rows whose column holds exactly value
func (t *Table) Equal(column, value string) *Table {
	return t.Where(func(i int) bool {
		c := t.Cell(i, column)
		return c.Valid && c.Text == value
	})
}

// In returns the rows whose column holds one of values. Numeric cells are
// compared on their text form.
func (t *Table) In(column string, values []string) *Table {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return t.Where(func(i int) bool {
		c := t.Cell(i, column)
		if !c.Valid {
			return false
		}
		_, ok := set[c.Text]
		return ok
	})
}

// Present reports whether at least one row holds a non-null value in column
func (t *Table) Present(column string) bool {
	j, ok := t.ColumnIndex(column)
	if !ok {
		return false
	}
	for _, row := range t.Rows {
		if j < len(row) && row[j].Valid {
			return true
		}
	}
	return false
}

// Select projects the table on the given columns, in that order. Unknown
// columns are ignored.
func (t *Table) Select(columns []string) *Table {
	idx := make([]int, 0, len(columns))
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if j, ok := t.ColumnIndex(c); ok {
			idx = append(idx, j)
			kept = append(kept, c)
		}
	}
	rows := make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]Cell, len(idx))
		for k, j := range idx {
			if j < len(row) {
				out[k] = row[j]
			}
		}
		rows[i] = out
	}
	return NewTable(kept, rows)
}

// DropEmptyColumns removes every column that holds only nulls
func (t *Table) DropEmptyColumns() *Table {
	kept := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if t.Present(c) {
			kept = append(kept, c)
		}
	}
	return t.Select(kept)
}

// Distinct returns the distinct non-null text values of column
func (t *Table) Distinct(column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range t.Rows {
		c := t.Cell(i, column)
		if !c.Valid {
			continue
		}
		if _, ok := seen[c.Text]; ok {
			continue
		}
		seen[c.Text] = struct{}{}
		out = append(out, c.Text)
	}
	return out
}

// Records renders the rows as column name to value maps
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(row) {
				rec[c] = row[j].Value()
			} else {
				rec[c] = nil
			}
		}
		out[i] = rec
	}
	return out
}

// Dataset is one loaded source: a table for tabular formats, raw text for
// JSON documents.
type Dataset struct {
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	Table     *Table    `json:"-"`
	Raw       string    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IsTabular reports whether the dataset decoded to a table
func (d *Dataset) IsTabular() bool {
	return d != nil && d.Table != nil
}
