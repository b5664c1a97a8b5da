// Package plot validates untrusted plot plans against column types and
// dispatches the surviving requests to a renderer.
package plot

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

// Kind is a supported plot kind.
type Kind string

const (
	Hist    Kind = "hist"
	Box     Kind = "box"
	Bar     Kind = "bar"
	Scatter Kind = "scatter"
	Line    Kind = "line"
)

// Contract lists the required logical type of each column, in order.
// Arity is len(Types).
type Contract struct {
	Types []profiling.LogicalType
}

// Contracts is the closed set of plot kinds the validator accepts.
var Contracts = map[Kind]Contract{
	Hist:    {Types: []profiling.LogicalType{profiling.Numeric}},
	Box:     {Types: []profiling.LogicalType{profiling.Numeric}},
	Bar:     {Types: []profiling.LogicalType{profiling.Categorical}},
	Scatter: {Types: []profiling.LogicalType{profiling.Numeric, profiling.Numeric}},
	Line:    {Types: []profiling.LogicalType{profiling.Datetime, profiling.Numeric}},
}

// Kinds lists the keys of Contracts in display order.
var Kinds = []Kind{Hist, Box, Bar, Scatter, Line}

// Describe returns a one-line summary per kind, e.g. "line: datetime, numeric".
func Describe() []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		c := Contracts[k]
		types := make([]string, len(c.Types))
		for i, t := range c.Types {
			types[i] = string(t)
		}
		out = append(out, fmt.Sprintf("%s: %s", k, strings.Join(types, ", ")))
	}
	return out
}

// Request is an untrusted plot request as parsed from the insight
// generator. It is never modified.
type Request struct {
	Type    string   `json:"type" yaml:"type"`
	Columns []string `json:"columns" yaml:"columns"`
}

// Job is a validated request. Only Validate produces one.
type Job struct {
	Kind    Kind
	Columns []string
}

// Reason classifies a rejection.
type Reason string

const (
	ReasonNoColumns     Reason = "no_columns"
	ReasonUnknownColumn Reason = "unknown_column"
	ReasonUnknownKind   Reason = "unknown_kind"
	ReasonArity         Reason = "arity"
	ReasonType          Reason = "type"
)

// RejectError reports why a request was dropped.
type RejectError struct {
	Request Request
	Reason  Reason
	Detail  string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("plot %q %v rejected (%s): %s", e.Request.Type, e.Request.Columns, e.Reason, e.Detail)
}

func reject(req Request, r Reason, format string, args ...any) *RejectError {
	return &RejectError{Request: req, Reason: r, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks req against the table's columns and their logical types.
func Validate(req Request, t *table.Table, profiles profiling.Profiles) (Job, error) {
	if len(req.Columns) == 0 {
		return Job{}, reject(req, ReasonNoColumns, "no columns given")
	}
	for _, name := range req.Columns {
		if _, ok := t.Column(name); !ok {
			return Job{}, reject(req, ReasonUnknownColumn, "column %q not in table", name)
		}
	}
	kind := Kind(req.Type)
	contract, ok := Contracts[kind]
	if !ok {
		return Job{}, reject(req, ReasonUnknownKind, "unsupported plot type %q", req.Type)
	}
	if len(req.Columns) != len(contract.Types) {
		return Job{}, reject(req, ReasonArity, "%s takes %d column(s), got %d", kind, len(contract.Types), len(req.Columns))
	}
	for i, want := range contract.Types {
		got, _ := profiles.Logical(req.Columns[i])
		if got != want {
			return Job{}, reject(req, ReasonType, "column %q is %s, %s needs %s", req.Columns[i], orUnknown(got), kind, want)
		}
	}
	return Job{Kind: kind, Columns: append([]string(nil), req.Columns...)}, nil
}

func orUnknown(lt profiling.LogicalType) profiling.LogicalType {
	if lt == "" {
		return profiling.Unknown
	}
	return lt
}
