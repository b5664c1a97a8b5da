package profiling

import (
	"math"
	"time"

	"github.com/KaramelBytes/edalens/internal/table"
)

// Primitive flattens the profile into strings, numbers, booleans, nil and
// nested maps and slices. Timestamps become RFC 3339 strings.
func (p ColumnProfile) Primitive() map[string]any {
	out := map[string]any{
		"dtype":          string(p.Storage),
		"logical_type":   string(p.Logical),
		"non_null_count": p.NonNull,
		"null_count":     p.Nulls,
		"null_pct":       p.NullPct,
		"unique_values":  p.Unique,
	}
	switch s := p.Stats.(type) {
	case NumericStats:
		out["min"] = floatOrNil(s.Min)
		out["max"] = floatOrNil(s.Max)
		out["mean"] = floatOrNil(s.Mean)
		out["median"] = floatOrNil(s.Median)
		out["std"] = floatOrNil(s.Std)
		out["skew"] = floatOrNil(s.Skew)
	case CategoricalStats:
		out["top_values"] = ValueCountsPrimitive(s.TopValues)
	case DatetimeStats:
		out["min_date"] = timeOrNil(s.Min)
		out["max_date"] = timeOrNil(s.Max)
	case TextStats:
		vals := make([]any, len(s.Samples))
		for i, v := range s.Samples {
			vals[i] = v
		}
		out["sample_values"] = vals
	case NoStats, nil:
	}
	return out
}

// Primitive returns column name to primitive profile, plus row and column counts.
func (p Profiles) Primitive() map[string]any {
	cols := make(map[string]any, len(p.List))
	for _, cp := range p.List {
		cols[cp.Name] = cp.Primitive()
	}
	return map[string]any{
		"num_columns": len(p.List),
		"columns":     cols,
	}
}

// ValueCountsPrimitive keeps frequency order by emitting a list of
// {value, count} maps.
func ValueCountsPrimitive(vc []table.ValueCount) []any {
	out := make([]any, len(vc))
	for i, v := range vc {
		out[i] = map[string]any{"value": v.Value, "count": v.Count}
	}
	return out
}

func floatOrNil(v *float64) any {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(time.RFC3339)
}
