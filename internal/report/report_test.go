package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/insight"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

func sample(t *testing.T) *Report {
	t.Helper()
	tbl := table.FromRecords("people", []string{"age", "score", "city"}, [][]string{
		{"21", "1", "Paris"}, {"22", "2", "Rome"}, {"23", "4", "Paris"}, {"35", "3", "Oslo"}, {"90", "9", "Rome"}, {"40", "5", "Paris"},
	})
	profiles := profiling.ProfileTable(tbl)
	bundle := analytics.Compute(tbl, profiles, analytics.DefaultOptions())
	in := insight.Insights{
		DatasetSummary:    "Six people in three cities.",
		DataQualityIssues: []string{"age has an outlier"},
		KeyInsights:       []string{"Paris is the most common city"},
		MLSuggestions:     []string{},
		Plots:             []plot.Request{{Type: "hist", Columns: []string{"age"}}, {Type: "pie", Columns: []string{"city"}}},
	}
	arts := plot.Dispatch(tbl, in.Plots, profiles, plot.DataRenderer{Bins: 5, NewID: func() string { return "a1" }})
	return &Report{
		RunID:         "run-1",
		Source:        "people.csv",
		GeneratedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Profiles:      profiles,
		Analytics:     bundle,
		InsightSource: SourceRuntime,
		Insights:      &in,
		Requested:     len(in.Plots),
		Artifacts:     arts,
		Preview:       Preview{Columns: tbl.Names(), Rows: tbl.Head(2)},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(sample(t))
	for _, want := range []string{
		"[DATASET SUMMARY]", "[COLUMN PROFILES]", "[NUMERIC ANALYSIS]", "[CATEGORICAL ANALYSIS]",
		"[CORRELATIONS]", "[INSIGHTS]", "[PLOTS]", "[PREVIEW]",
		"- File: people.csv", "- Rows: 6", "| age |", "Six people in three cities.",
		"- age has an outlier", "Distribution of age (hist: age) [5 bins]",
		"1 of 2 requested plots rendered; 1 rejected.",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "ML suggestions:")
}

func TestTextUsesBoxTables(t *testing.T) {
	out := Text(sample(t))
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "[COLUMN PROFILES]")
}

func TestStatusMessages(t *testing.T) {
	r := sample(t)
	r.Artifacts = nil
	assert.Equal(t, "No valid plots: all 2 requested plots were rejected.", r.PlotStatus())

	r.Requested = 0
	assert.Equal(t, "No plots were suggested.", r.PlotStatus())

	fb := insight.Fallback(insight.ErrNoJSON)
	r.Insights = &fb
	assert.Equal(t, "No plots: insights unavailable.", r.PlotStatus())
	assert.Equal(t, "Insights unavailable.", r.InsightStatus())
	md := Markdown(r)
	assert.Contains(t, md, insight.ErrNoJSON.Error())
	assert.NotContains(t, md, insight.FallbackSummary)

	r.Insights, r.InsightSource = nil, SourceSkipped
	assert.Equal(t, "Plots skipped: insight generation disabled.", r.PlotStatus())

	r.InsightSource = SourcePlan
	assert.Contains(t, r.InsightStatus(), "plot plan")
}

func TestPlotStatusSeparatesRenderFailures(t *testing.T) {
	r := sample(t)
	r.Requested, r.RenderFailed = 4, 1
	assert.Equal(t, "1 of 4 requested plots rendered; 2 rejected, 1 failed to render.", r.PlotStatus())

	r.Requested = 2
	assert.Equal(t, "1 of 2 requested plots rendered; 1 failed to render.", r.PlotStatus())

	r.Artifacts, r.Requested, r.RenderFailed = nil, 3, 3
	assert.Equal(t, "No plots rendered: 3 failed to render.", r.PlotStatus())

	counts := r.Document()["plot_counts"].(map[string]any)
	assert.Equal(t, 0, counts["rejected"])
	assert.Equal(t, 3, counts["render_failed"])
}

func TestCorrelationSections(t *testing.T) {
	r := sample(t)
	assert.Contains(t, Markdown(r), "| positive | age | score |")

	r.Analytics.Correlations = analytics.Correlations{}
	assert.Contains(t, Markdown(r), "Not enough numeric columns for correlations.")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(t), FormatJSON))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["generated_at"])
	plots, ok := doc["plots"].([]any)
	require.True(t, ok)
	assert.Len(t, plots, 1)
	ins, ok := doc["insights"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Six people in three cities.", ins["dataset_summary"])
	_, degraded := doc["insights_degraded"]
	assert.False(t, degraded)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(t), FormatYAML))
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "people.csv", doc["source"])
	assert.Equal(t, "runtime", doc["insight_source"])
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(t), FormatHTML))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<html"), "complete page expected")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "EDA report: people.csv")
	assert.NotContains(t, out, "<img")

	r := sample(t)
	r.Artifacts[0].Image = "plots/a1.png"
	buf.Reset()
	require.NoError(t, Render(&buf, r, FormatHTML))
	assert.Contains(t, buf.String(), `<img src="plots/a1.png"`)
	assert.Contains(t, Markdown(r), "![Distribution of age](plots/a1.png)")
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, sample(t), "pdf")
	assert.ErrorContains(t, err, "unknown format")
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".md", Ext(FormatMarkdown))
	assert.Equal(t, ".json", Ext(FormatJSON))
	assert.Equal(t, ".html", Ext(FormatHTML))
}
