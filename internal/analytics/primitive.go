package analytics

import (
	"math"

	"github.com/KaramelBytes/edalens/internal/profiling"
)

// Primitive returns the dataset metrics as primitive values.
func (d DatasetProfile) Primitive() map[string]any {
	return map[string]any{
		"num_rows":           d.Rows,
		"num_columns":        d.Columns,
		"duplicate_rows_pct": d.DuplicateRowsPct,
		"total_missing_pct":  d.TotalMissingPct,
		"memory_usage_mb":    d.MemoryUsageMB,
	}
}

// Primitive returns the correlation section; an unavailable section is an empty map.
func (c Correlations) Primitive() map[string]any {
	if !c.Available {
		return map[string]any{}
	}
	return map[string]any{
		"top_positive_correlations": pairsPrimitive(c.TopPositive),
		"top_negative_correlations": pairsPrimitive(c.TopNegative),
	}
}

// Primitive flattens the bundle into strings, numbers, booleans, nil and
// nested maps and slices.
func (b Bundle) Primitive() map[string]any {
	num := make(map[string]any, len(b.Numeric))
	for name, s := range b.Numeric {
		num[name] = map[string]any{
			"mean":          floatOrNil(s.Mean),
			"median":        floatOrNil(s.Median),
			"std":           floatOrNil(s.Std),
			"skew":          floatOrNil(s.Skew),
			"outlier_count": s.OutlierCount,
		}
	}
	cat := make(map[string]any, len(b.Categorical))
	for name, s := range b.Categorical {
		cat[name] = map[string]any{
			"unique_values":    s.Unique,
			"high_cardinality": s.HighCardinality,
			"top_categories":   profiling.ValueCountsPrimitive(s.Top),
		}
	}
	return map[string]any{
		"dataset":             b.Dataset.Primitive(),
		"numeric_columns":     num,
		"categorical_columns": cat,
		"correlations":        b.Correlations.Primitive(),
	}
}

func pairsPrimitive(pairs []Correlation) []any {
	out := make([]any, len(pairs))
	for i, p := range pairs {
		out[i] = map[string]any{
			"feature_1":   p.Feature1,
			"feature_2":   p.Feature2,
			"correlation": p.Rounded(),
		}
	}
	return out
}

func floatOrNil(v *float64) any {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return *v
}
