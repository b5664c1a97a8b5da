package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Shape limits enforced before a table is handed to profiling.
const (
	MinColumns = 2
	MinRows    = 5
)

var (
	// ErrPrecondition marks tables rejected at the input boundary.
	ErrPrecondition = errors.New("dataset precondition violated")
	// ErrUnsupported marks file formats the loader cannot read.
	ErrUnsupported = errors.New("unsupported file format")
)

// PreconditionError describes why a table was rejected.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// LoadOptions controls file loading.
type LoadOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {}, "#N/A": {},
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"01-02-06",
}

// Load reads a CSV, TSV or XLSX file and validates its shape.
func Load(path string, opt LoadOptions) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		t   *Table
		err error
	)
	switch ext {
	case ".csv", ".tsv":
		t, err = loadCSV(path, ext, opt)
	case ".xlsx":
		t, err = loadXLSX(path, opt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate enforces the input-boundary invariants: non-empty, at least
// MinColumns columns and at least MinRows rows.
func Validate(t *Table) error {
	if t == nil || t.Width() == 0 || t.Rows() == 0 {
		return &PreconditionError{Reason: "dataset is empty"}
	}
	if t.Width() < MinColumns {
		return &PreconditionError{Reason: fmt.Sprintf("dataset must contain at least %d columns", MinColumns)}
	}
	if t.Rows() < MinRows {
		return &PreconditionError{Reason: fmt.Sprintf("dataset must contain at least %d rows for meaningful EDA", MinRows)}
	}
	n := t.Rows()
	for _, c := range t.Columns {
		if c.Len() != n {
			return &PreconditionError{Reason: fmt.Sprintf("column %q has %d cells, want %d", c.Name, c.Len(), n)}
		}
	}
	return nil
}

func loadCSV(path, ext string, opt LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
		if ext == ".tsv" {
			delim = '\t'
		}
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{Name: filepath.Base(path)}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return FromRecords(filepath.Base(path), header, rows), nil
}

func loadXLSX(path string, opt LoadOptions) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := opt.Sheet
	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return &Table{Name: filepath.Base(path)}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q in %s (available: %s): %w",
			sheet, filepath.Base(path), strings.Join(sheets, ", "), err)
	}
	if len(rows) == 0 {
		return &Table{Name: filepath.Base(path)}, nil
	}
	return FromRecords(filepath.Base(path), rows[0], rows[1:]), nil
}

// FromRecords builds a table from a header and raw string rows, detecting
// each column's storage type from its present values. Short rows are padded
// with absent cells; extra fields are ignored.
func FromRecords(name string, header []string, rows [][]string) *Table {
	names := uniqueNames(header)
	t := &Table{Name: name, Columns: make([]Column, len(names))}
	raw := make([]string, len(rows))
	for j, n := range names {
		for i, rec := range rows {
			raw[i] = ""
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		t.Columns[j] = parseColumn(n, raw)
	}
	return t
}

func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if k, ok := seen[n]; ok {
			seen[n] = k + 1
			n = fmt.Sprintf("%s.%d", n, k)
		} else {
			seen[n] = 1
		}
		out[i] = n
	}
	return out
}

func isNull(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

func parseColumn(name string, raw []string) Column {
	st := detectStorage(raw)
	col := Column{Name: name, Storage: st, Cells: make([]Cell, len(raw))}
	for i, s := range raw {
		if isNull(s) {
			continue
		}
		switch st {
		case Boolean:
			col.Cells[i] = BoolCell(strings.EqualFold(s, "true"))
		case Integer:
			v, _ := strconv.ParseInt(s, 10, 64)
			col.Cells[i] = IntCell(v)
		case Float:
			// inf and +Infinity parse; they load as absent cells.
			if v, _ := strconv.ParseFloat(s, 64); !math.IsInf(v, 0) && !math.IsNaN(v) {
				col.Cells[i] = FloatCell(v)
			}
		case Timestamp:
			v, _ := parseTime(s)
			col.Cells[i] = TimeCell(v)
		default:
			col.Cells[i] = StrCell(s)
		}
	}
	return col
}

// detectStorage picks the narrowest storage type that every present value fits.
func detectStorage(raw []string) StorageType {
	present, bools, ints, floats, times := 0, 0, 0, 0, 0
	for _, s := range raw {
		if isNull(s) {
			continue
		}
		present++
		if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
			bools++
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			ints++
			floats++
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			floats++
			continue
		}
		if _, ok := parseTime(s); ok {
			times++
		}
	}
	switch {
	case present == 0:
		return Null
	case bools == present:
		return Boolean
	case ints == present:
		return Integer
	case floats == present:
		return Float
	case times == present:
		return Timestamp
	}
	return String
}

func parseTime(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
