package table

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// StorageType is the raw storage representation shared by every cell of a column.
type StorageType string

const (
	Integer   StorageType = "integer"
	Float     StorageType = "float"
	Boolean   StorageType = "boolean"
	String    StorageType = "string"
	Timestamp StorageType = "timestamp"
	// Null tags a column whose every cell is absent.
	Null StorageType = "null"
)

// Cell is a single value. Only the field matching the column storage is meaningful.
type Cell struct {
	Valid bool
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Time  time.Time
}

// Column is a named, ordered sequence of cells of one storage type.
type Column struct {
	Name    string
	Storage StorageType
	Cells   []Cell
}

// Table is an ordered sequence of equally long columns. It is not mutated after load.
type Table struct {
	Name    string
	Columns []Column
}

// ValueCount is a distinct non-null value and how often it occurs.
type ValueCount struct {
	Value string
	Count int
}

func IntCell(v int64) Cell { return Cell{Valid: true, Int: v} }
func FloatCell(v float64) Cell { return Cell{Valid: true, Float: v} }
func BoolCell(v bool) Cell { return Cell{Valid: true, Bool: v} }
func StrCell(v string) Cell { return Cell{Valid: true, Str: v} }
func TimeCell(v time.Time) Cell { return Cell{Valid: true, Time: v} }
func NullCell() Cell { return Cell{} }

// NewColumn builds a column from already typed cells.
func NewColumn(name string, st StorageType, cells ...Cell) Column {
	return Column{Name: name, Storage: st, Cells: cells}
}

// New builds a table from columns. Columns must have equal length.
func New(name string, cols ...Column) *Table {
	return &Table{Name: name, Columns: cols}
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Width returns the column count.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Head returns up to n rows stringified, absent cells as empty strings.
func (t *Table) Head(n int) [][]string {
	rows := t.Rows()
	if n > rows {
		n = rows
	}
	out := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.Columns))
		for j := range t.Columns {
			row[j] = t.Columns[j].Format(t.Columns[j].Cells[r])
		}
		out = append(out, row)
	}
	return out
}

// RowKey returns a canonical key of row r used for exact-duplicate detection.
func (t *Table) RowKey(r int) string {
	var b strings.Builder
	for j := range t.Columns {
		c := &t.Columns[j]
		cell := c.Cells[r]
		// Quoted cells cannot contain a bare quote, so concatenation is unambiguous.
		if !cell.Valid {
			b.WriteByte('-')
			continue
		}
		b.WriteString(strconv.Quote(c.Format(cell)))
	}
	return b.String()
}

// Len returns the number of cells, absent ones included.
func (c *Column) Len() int { return len(c.Cells) }

// NonNull returns the number of present cells.
func (c *Column) NonNull() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Valid {
			n++
		}
	}
	return n
}

// Key returns a canonical, storage-qualified key for a cell. Absent cells share one key.
func (c *Column) Key(cell Cell) string {
	if !cell.Valid {
		return "\x00"
	}
	return c.Format(cell)
}

// Format stringifies a present cell; absent cells become "".
func (c *Column) Format(cell Cell) string {
	if !cell.Valid {
		return ""
	}
	switch c.Storage {
	case Integer:
		return strconv.FormatInt(cell.Int, 10)
	case Float:
		return strconv.FormatFloat(cell.Float, 'g', -1, 64)
	case Boolean:
		if cell.Bool {
			return "True"
		}
		return "False"
	case Timestamp:
		return cell.Time.Format(time.RFC3339)
	default:
		return cell.Str
	}
}

// Floats returns present numeric values in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if v, ok := c.Number(cell); ok {
			out = append(out, v)
		}
	}
	return out
}

// Number returns the numeric value of a present integer or float cell.
func (c *Column) Number(cell Cell) (float64, bool) {
	if !cell.Valid {
		return 0, false
	}
	switch c.Storage {
	case Integer:
		return float64(cell.Int), true
	case Float:
		return cell.Float, true
	}
	return 0, false
}

// Distinct counts distinct present values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{}, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Valid {
			seen[c.Key(cell)] = struct{}{}
		}
	}
	return len(seen)
}

// ValueCounts returns present values by descending count. Ties keep first-encounter order.
func (c *Column) ValueCounts() []ValueCount {
	idx := map[string]int{}
	var out []ValueCount
	for _, cell := range c.Cells {
		if !cell.Valid {
			continue
		}
		k := c.Format(cell)
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, ValueCount{Value: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
