package profiling

import (
	"time"

	"github.com/KaramelBytes/edalens/internal/table"
)

const (
	topValuesLimit   = 5
	textSamplesLimit = 5
)

// ColumnProfile describes one column. Stats holds the type-specific block
// and is always one of NumericStats, CategoricalStats, DatetimeStats,
// TextStats or NoStats.
type ColumnProfile struct {
	Name    string
	Storage table.StorageType
	Logical LogicalType
	NonNull int
	Nulls   int
	NullPct float64
	Unique  int
	Stats   Stats
}

// Stats is the closed set of type-specific statistics blocks.
type Stats interface {
	statsBlock()
}

// NumericStats is the numeric block. Empty is set when the column has no
// present values; every statistic is then nil.
type NumericStats struct {
	Empty  bool
	Min    *float64
	Max    *float64
	Mean   *float64
	Median *float64
	Std    *float64
	Skew   *float64
}

// CategoricalStats carries the most frequent values.
type CategoricalStats struct {
	TopValues []table.ValueCount
}

// DatetimeStats carries the observed range; both are nil with no present values.
type DatetimeStats struct {
	Min *time.Time
	Max *time.Time
}

// TextStats carries sample values in row order.
type TextStats struct {
	Samples []string
}

// NoStats is used for boolean and unknown columns.
type NoStats struct{}

func (NumericStats) statsBlock()     {}
func (CategoricalStats) statsBlock() {}
func (DatetimeStats) statsBlock()    {}
func (TextStats) statsBlock()        {}
func (NoStats) statsBlock()          {}

// ProfileColumn computes the profile of a single column.
func ProfileColumn(col *table.Column) ColumnProfile {
	rows := col.Len()
	nonNull := col.NonNull()
	p := ColumnProfile{
		Name:    col.Name,
		Storage: col.Storage,
		Logical: InferType(col),
		NonNull: nonNull,
		Nulls:   rows - nonNull,
		Unique:  col.Distinct(),
	}
	if rows > 0 {
		p.NullPct = Round(float64(p.Nulls)/float64(rows)*100, 2)
	}
	switch p.Logical {
	case Numeric:
		p.Stats = numericStats(col)
	case Categorical:
		vc := col.ValueCounts()
		if len(vc) > topValuesLimit {
			vc = vc[:topValuesLimit]
		}
		p.Stats = CategoricalStats{TopValues: vc}
	case Datetime:
		p.Stats = datetimeStats(col)
	case Text:
		p.Stats = TextStats{Samples: samples(col, textSamplesLimit)}
	default:
		p.Stats = NoStats{}
	}
	return p
}

func numericStats(col *table.Column) NumericStats {
	m := Describe(col.Floats())
	if m.Count == 0 {
		return NumericStats{Empty: true}
	}
	return NumericStats{
		Min:    m.Min,
		Max:    m.Max,
		Mean:   RoundPtr(m.Mean, 3),
		Median: m.Median,
		Std:    RoundPtr(m.Std, 3),
		Skew:   RoundPtr(m.Skew, 3),
	}
}

func datetimeStats(col *table.Column) DatetimeStats {
	var out DatetimeStats
	for _, c := range col.Cells {
		if !c.Valid {
			continue
		}
		t := c.Time
		if out.Min == nil || t.Before(*out.Min) {
			out.Min = &t
		}
		if out.Max == nil || t.After(*out.Max) {
			out.Max = &t
		}
	}
	return out
}

func samples(col *table.Column, n int) []string {
	out := make([]string, 0, n)
	for _, c := range col.Cells {
		if len(out) == n {
			break
		}
		if c.Valid {
			out = append(out, col.Format(c))
		}
	}
	return out
}

// Profiles is the ordered set of column profiles of one table.
type Profiles struct {
	List  []ColumnProfile
	index map[string]int
}

// ProfileTable profiles every column of t in order.
func ProfileTable(t *table.Table) Profiles {
	p := Profiles{
		List:  make([]ColumnProfile, 0, t.Width()),
		index: make(map[string]int, t.Width()),
	}
	for i := range t.Columns {
		p.index[t.Columns[i].Name] = len(p.List)
		p.List = append(p.List, ProfileColumn(&t.Columns[i]))
	}
	return p
}

// NewProfiles indexes already computed profiles.
func NewProfiles(list ...ColumnProfile) Profiles {
	p := Profiles{List: list, index: make(map[string]int, len(list))}
	for i, cp := range list {
		p.index[cp.Name] = i
	}
	return p
}

// Get returns the profile of the named column.
func (p Profiles) Get(name string) (ColumnProfile, bool) {
	i, ok := p.index[name]
	if !ok {
		return ColumnProfile{}, false
	}
	return p.List[i], true
}

// Logical returns the logical type of the named column.
func (p Profiles) Logical(name string) (LogicalType, bool) {
	cp, ok := p.Get(name)
	return cp.Logical, ok
}

// Names returns the names of columns with the given logical type, in order.
func (p Profiles) Names(lt LogicalType) []string {
	var out []string
	for _, cp := range p.List {
		if cp.Logical == lt {
			out = append(out, cp.Name)
		}
	}
	return out
}
