package loader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"election_dashboard/pkg/catalog"
	"election_dashboard/pkg/data"
)

const parquetBatchSize = 512

// decoder turns a downloaded payload into a dataset. Tabular decoders drop
// rows not matching filters while reading.
type decoder func(body *Body, ds *data.Dataset, filters []catalog.Filter) error

var decoders = map[string]decoder{
	data.FormatCSV:     decodeCSV,
	data.FormatJSON:    decodeJSON,
	data.FormatParquet: decodeParquet,
}

// rowFilter keeps rows whose filtered columns hold one of the allowed values
type rowFilter struct {
	columns []int
	allowed []map[string]struct{}
}

// newRowFilter resolves filters against the header. A filter on a column
// the payload does not have is an error rather than an empty result.
func newRowFilter(header []string, filters []catalog.Filter) (*rowFilter, error) {
	f := &rowFilter{}
	for _, flt := range filters {
		idx := -1
		for i, name := range header {
			if name == flt.Column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", data.ErrMissingColumn, flt.Column)
		}

		set := make(map[string]struct{}, len(flt.Values))
		for _, v := range flt.Values {
			set[v] = struct{}{}
		}
		f.columns = append(f.columns, idx)
		f.allowed = append(f.allowed, set)
	}
	return f, nil
}

// match reports whether the row whose cells are returned by cell passes
// every filter
func (f *rowFilter) match(cell func(col int) data.Cell) bool {
	for i, col := range f.columns {
		c := cell(col)
		if !c.Valid {
			return false
		}
		if _, ok := f.allowed[i][c.Text]; !ok {
			return false
		}
	}
	return true
}

func decodeJSON(body *Body, ds *data.Dataset, _ []catalog.Filter) error {
	raw, err := io.ReadAll(body.Reader())
	if err != nil {
		return fmt.Errorf("reading json: %w", err)
	}
	if !json.Valid(raw) {
		return errors.New("payload is not valid json")
	}
	ds.Raw = string(raw)
	return nil
}

func decodeCSV(body *Body, ds *data.Dataset, filters []catalog.Filter) error {
	r := csv.NewReader(body.Reader())
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			ds.Table = data.NewTable(nil, nil)
			return nil
		}
		return fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	filter, err := newRowFilter(header, filters)
	if err != nil {
		return err
	}

	var rows [][]data.Cell
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading csv record: %w", err)
		}
		keep := filter.match(func(col int) data.Cell {
			if col >= len(record) {
				return data.Cell{}
			}
			return data.ParseCell(record[col])
		})
		if !keep {
			continue
		}
		row := make([]data.Cell, len(header))
		for i := 0; i < len(header) && i < len(record); i++ {
			row[i] = data.ParseCell(record[i])
		}
		rows = append(rows, row)
	}

	ds.Table = data.NewTable(header, rows)
	return nil
}

func decodeParquet(body *Body, ds *data.Dataset, filters []catalog.Filter) error {
	file, err := parquet.OpenFile(body, body.Size())
	if err != nil {
		return fmt.Errorf("opening parquet: %w", err)
	}

	leaves := file.Schema().Columns()
	columns := make([]string, len(leaves))
	for i, path := range leaves {
		columns[i] = strings.Join(path, ".")
	}

	filter, err := newRowFilter(columns, filters)
	if err != nil {
		return err
	}

	reader := parquet.NewReader(file)
	defer reader.Close()

	var rows [][]data.Cell
	buf := make([]parquet.Row, parquetBatchSize)
	for {
		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			if !filter.match(func(col int) data.Cell { return parquetLeaf(row, col) }) {
				continue
			}
			rows = append(rows, parquetRow(row, len(columns)))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	ds.Table = data.NewTable(columns, rows)
	return nil
}

// parquetRow converts one row of leaf values. Repeated leaves keep their
// first value.
func parquetRow(row parquet.Row, width int) []data.Cell {
	cells := make([]data.Cell, width)
	seen := make([]bool, width)
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= width || seen[col] {
			continue
		}
		seen[col] = true
		cells[col] = parquetCell(v)
	}
	return cells
}

// parquetLeaf returns the first value of leaf column col
func parquetLeaf(row parquet.Row, col int) data.Cell {
	for _, v := range row {
		if v.Column() == col {
			return parquetCell(v)
		}
	}
	return data.Cell{}
}

func parquetCell(v parquet.Value) data.Cell {
	if v.IsNull() {
		return data.Cell{}
	}
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return data.TextCell("true")
		}
		return data.TextCell("false")
	case parquet.Int32:
		return data.NumberCell(float64(v.Int32()))
	case parquet.Int64:
		return data.NumberCell(float64(v.Int64()))
	case parquet.Float:
		return data.NumberCell(float64(v.Float()))
	case parquet.Double:
		return data.NumberCell(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return data.TextCell(string(v.ByteArray()))
	default:
		return data.TextCell(v.String())
	}
}
