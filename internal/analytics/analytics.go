package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

const (
	// OutlierFactor scales the IQR for the outlier fences.
	OutlierFactor     = 1.5
	topCategoryLimit  = 10
	correlationPlaces = 4
)

// Options controls Compute. Zero fields take the DefaultOptions value.
type Options struct {
	// HighCardinalityThreshold flags categorical columns with more distinct values.
	HighCardinalityThreshold int
	// TopCorrelations is the number of pairs kept per direction.
	TopCorrelations int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{HighCardinalityThreshold: 50, TopCorrelations: 5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HighCardinalityThreshold <= 0 {
		o.HighCardinalityThreshold = d.HighCardinalityThreshold
	}
	if o.TopCorrelations <= 0 {
		o.TopCorrelations = d.TopCorrelations
	}
	return o
}

// NumericSummary is the per-column numeric analytics record.
type NumericSummary struct {
	Mean         *float64
	Median       *float64
	Std          *float64
	Skew         *float64
	OutlierCount int
}

// CategoricalSummary is the per-column categorical analytics record.
type CategoricalSummary struct {
	Unique          int
	HighCardinality bool
	Top             []table.ValueCount
}

// Correlation is one unordered numeric column pair.
type Correlation struct {
	Feature1 string
	Feature2 string
	Value    float64
}

// Rounded returns the coefficient at output precision.
func (c Correlation) Rounded() float64 {
	return profiling.Round(c.Value, correlationPlaces)
}

// Correlations is the ranked pair section. Available is false when fewer
// than two numeric columns exist.
type Correlations struct {
	Available   bool
	TopPositive []Correlation
	TopNegative []Correlation
}

// Bundle is the full analytics result of one table.
type Bundle struct {
	Dataset      DatasetProfile
	Numeric      map[string]NumericSummary
	Categorical  map[string]CategoricalSummary
	Correlations Correlations
	// NumericColumns and CategoricalColumns keep the keys of the maps
	// above in column order.
	NumericColumns     []string
	CategoricalColumns []string
}

// Compute runs dataset, numeric, categorical and correlation analytics.
// Column partitioning follows the logical types in profiles.
func Compute(t *table.Table, profiles profiling.Profiles, opt Options) Bundle {
	opt = opt.withDefaults()
	b := Bundle{
		Dataset:     ProfileDataset(t),
		Numeric:     map[string]NumericSummary{},
		Categorical: map[string]CategoricalSummary{},
	}
	var numeric []*table.Column
	for _, cp := range profiles.List {
		col, ok := t.Column(cp.Name)
		if !ok {
			continue
		}
		switch cp.Logical {
		case profiling.Numeric:
			numeric = append(numeric, col)
			if s, ok := numericSummary(col); ok {
				b.Numeric[col.Name] = s
				b.NumericColumns = append(b.NumericColumns, col.Name)
			}
		case profiling.Categorical:
			b.Categorical[col.Name] = categoricalSummary(col, opt.HighCardinalityThreshold)
			b.CategoricalColumns = append(b.CategoricalColumns, col.Name)
		}
	}
	b.Correlations = correlate(numeric, opt.TopCorrelations)
	return b
}

func numericSummary(col *table.Column) (NumericSummary, bool) {
	vals := col.Floats()
	if len(vals) == 0 {
		return NumericSummary{}, false
	}
	m := profiling.Describe(vals)
	return NumericSummary{
		Mean:         profiling.RoundPtr(m.Mean, 3),
		Median:       profiling.RoundPtr(m.Median, 3),
		Std:          profiling.RoundPtr(m.Std, 3),
		Skew:         profiling.RoundPtr(m.Skew, 3),
		OutlierCount: CountOutliers(vals),
	}, true
}

// CountOutliers counts values strictly outside the IQR fences.
func CountOutliers(vals []float64) int {
	if len(vals) == 0 {
		return 0
	}
	s := profiling.Sorted(vals)
	q1 := profiling.Quantile(s, 0.25)
	q3 := profiling.Quantile(s, 0.75)
	iqr := q3 - q1
	lo, hi := q1-OutlierFactor*iqr, q3+OutlierFactor*iqr
	n := 0
	for _, v := range vals {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}

func categoricalSummary(col *table.Column, threshold int) CategoricalSummary {
	vc := col.ValueCounts()
	unique := len(vc)
	if len(vc) > topCategoryLimit {
		vc = vc[:topCategoryLimit]
	}
	return CategoricalSummary{Unique: unique, HighCardinality: unique > threshold, Top: vc}
}

func correlate(cols []*table.Column, topN int) Correlations {
	if len(cols) < 2 {
		return Correlations{}
	}
	var pairs []Correlation
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			r, ok := pearson(cols[i], cols[j])
			if !ok {
				continue
			}
			pairs = append(pairs, Correlation{Feature1: cols[i].Name, Feature2: cols[j].Name, Value: r})
		}
	}
	desc := append([]Correlation(nil), pairs...)
	sort.SliceStable(desc, func(a, b int) bool { return desc[a].Value > desc[b].Value })
	asc := append([]Correlation(nil), pairs...)
	sort.SliceStable(asc, func(a, b int) bool { return asc[a].Value < asc[b].Value })
	return Correlations{
		Available:   true,
		TopPositive: head(desc, topN),
		TopNegative: head(asc, topN),
	}
}

// pearson correlates two columns over rows where both are present.
func pearson(a, b *table.Column) (float64, bool) {
	n := min(a.Len(), b.Len())
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for r := 0; r < n; r++ {
		va, okA := a.Number(a.Cells[r])
		vb, okB := b.Number(b.Cells[r])
		if okA && okB {
			x = append(x, va)
			y = append(y, vb)
		}
	}
	if len(x) < 2 {
		return 0, false
	}
	mx, sx := stat.MeanStdDev(x, nil)
	my, sy := stat.MeanStdDev(y, nil)
	if flat(sx, mx) || flat(sy, my) {
		return 0, false
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

func flat(std, mean float64) bool {
	return std <= 1e-14*math.Max(math.Abs(mean), 1)
}

func head(c []Correlation, n int) []Correlation {
	if len(c) > n {
		c = c[:n]
	}
	if c == nil {
		c = []Correlation{}
	}
	return c
}
