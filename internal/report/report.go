// Package report assembles the result of one analysis run and renders it as
// markdown, terminal tables, JSON, YAML or HTML.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/insight"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
)

// InsightSource records where the plot plan came from.
type InsightSource string

const (
	SourceRuntime InsightSource = "runtime"
	SourcePlan    InsightSource = "plan"
	SourceSkipped InsightSource = "skipped"
)

// Preview is the first rows of the table, stringified.
type Preview struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Report is everything one run produced.
type Report struct {
	RunID         string
	Source        string
	Sheet         string
	GeneratedAt   time.Time
	Profiles      profiling.Profiles
	Analytics     analytics.Bundle
	InsightSource InsightSource
	// Insights is nil when the source is SourceSkipped or SourcePlan.
	Insights  *insight.Insights
	Requested int
	// RenderFailed counts validated requests the renderer could not draw;
	// the remaining shortfall against Requested was rejected by validation.
	RenderFailed int
	Artifacts    []plot.Artifact
	Preview   Preview
}

// PlotStatus describes the plot section in one line.
func (r *Report) PlotStatus() string {
	switch {
	case len(r.Artifacts) > 0:
		if r.Requested > len(r.Artifacts) {
			return fmt.Sprintf("%d of %d requested plots rendered; %s.", len(r.Artifacts), r.Requested, r.dropped())
		}
		return fmt.Sprintf("%d plots rendered.", len(r.Artifacts))
	case r.InsightSource == SourceSkipped:
		return "Plots skipped: insight generation disabled."
	case r.Insights != nil && r.Insights.Degraded:
		return "No plots: insights unavailable."
	case r.Requested == 0:
		return "No plots were suggested."
	case r.RenderFailed == 0:
		return fmt.Sprintf("No valid plots: all %d requested plots were rejected.", r.Requested)
	default:
		return fmt.Sprintf("No plots rendered: %s.", r.dropped())
	}
}

// rejected is the number of requests dropped by validation.
func (r *Report) rejected() int {
	return max(r.Requested-len(r.Artifacts)-r.RenderFailed, 0)
}

func (r *Report) dropped() string {
	var parts []string
	if n := r.rejected(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", n))
	}
	if r.RenderFailed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed to render", r.RenderFailed))
	}
	return strings.Join(parts, ", ")
}

// InsightStatus describes the insight section in one line, or "" when
// insights are present.
func (r *Report) InsightStatus() string {
	switch {
	case r.InsightSource == SourceSkipped:
		return "Insights skipped."
	case r.InsightSource == SourcePlan:
		return "Insights not requested: plot plan loaded from file."
	case r.Insights == nil || r.Insights.Degraded:
		return "Insights unavailable."
	}
	return ""
}

// Document returns the report as a primitive tree for JSON and YAML output.
func (r *Report) Document() map[string]any {
	doc := map[string]any{
		"run_id":         r.RunID,
		"source":         r.Source,
		"generated_at":   r.GeneratedAt.UTC().Format(time.RFC3339),
		"dataset":        r.Analytics.Dataset.Primitive(),
		"columns":        r.Profiles.Primitive()["columns"],
		"analytics":      r.Analytics.Primitive(),
		"insight_source": string(r.InsightSource),
		"plots":          r.Artifacts,
		"plot_status":    r.PlotStatus(),
		"preview":        r.Preview,
	}
	doc["plot_counts"] = map[string]any{
		"requested":     r.Requested,
		"rendered":      len(r.Artifacts),
		"rejected":      r.rejected(),
		"render_failed": r.RenderFailed,
	}
	if r.Artifacts == nil {
		doc["plots"] = []plot.Artifact{}
	}
	if r.Sheet != "" {
		doc["sheet"] = r.Sheet
	}
	if r.Insights != nil {
		doc["insights"] = r.Insights
		if r.Insights.Degraded {
			doc["insights_degraded"] = true
		}
	}
	return doc
}
