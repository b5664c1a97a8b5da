// Package profiling classifies columns into logical types and computes
// per-column descriptive statistics.
package profiling

import "github.com/KaramelBytes/edalens/internal/table"

// LogicalType is the semantic classification of a column.
type LogicalType string

const (
	Numeric     LogicalType = "numeric"
	Categorical LogicalType = "categorical"
	Text        LogicalType = "text"
	Datetime    LogicalType = "datetime"
	Boolean     LogicalType = "boolean"
	Unknown     LogicalType = "unknown"
)

// TextUniqueRatio is the distinct/rows ratio above which a string column is text.
const TextUniqueRatio = 0.5

// LogicalTypes lists every logical type in a stable order.
var LogicalTypes = []LogicalType{Numeric, Categorical, Text, Datetime, Boolean, Unknown}

// InferType classifies a column from its storage type and, for string
// columns, the ratio of distinct non-null values to row count.
func InferType(col *table.Column) LogicalType {
	switch col.Storage {
	case table.Boolean:
		return Boolean
	case table.Integer, table.Float:
		return Numeric
	case table.Timestamp:
		return Datetime
	case table.String:
		ratio := float64(col.Distinct()) / float64(max(col.Len(), 1))
		if ratio > TextUniqueRatio {
			return Text
		}
		return Categorical
	}
	return Unknown
}
