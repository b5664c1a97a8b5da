package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Moments holds unrounded location and shape statistics of a sample.
// Pointers are nil where the statistic is undefined for the sample size.
type Moments struct {
	Count  int
	Min    *float64
	Max    *float64
	Mean   *float64
	Median *float64
	Std    *float64
	Skew   *float64
}

// Describe computes Moments over vals. It never fails; an empty sample
// returns a zero Moments with every statistic nil. A statistic that
// overflows to a non-finite value is left nil.
func Describe(vals []float64) Moments {
	m := Moments{Count: len(vals)}
	if len(vals) == 0 {
		return m
	}
	data := stats.Float64Data(vals)
	if v, err := stats.Min(data); err == nil {
		m.Min = finite(v)
	}
	if v, err := stats.Max(data); err == nil {
		m.Max = finite(v)
	}
	mean, err := stats.Mean(data)
	if err == nil {
		m.Mean = finite(mean)
	}
	if v, err := stats.Median(data); err == nil {
		m.Median = finite(v)
	}
	if len(vals) < 2 || m.Mean == nil {
		return m
	}
	std, err := stats.StandardDeviationSample(data)
	if err != nil {
		return m
	}
	if m.Std = finite(std); m.Std == nil || len(vals) < 3 {
		return m
	}
	skew := 0.0
	if !flat(std, mean) {
		skew = stat.Skew(vals, nil)
	}
	m.Skew = finite(skew)
	return m
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// flat reports whether a sample's spread is indistinguishable from zero.
func flat(std, mean float64) bool {
	return std <= 1e-14*math.Max(math.Abs(mean), 1)
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between the closest ranks at position (n-1)*q.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Sorted returns a sorted copy of vals.
func Sorted(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// Round rounds v half away from zero to the given decimal places.
func Round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil || math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	return r
}

// RoundPtr rounds a possibly nil statistic.
func RoundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, places)
	return &r
}
