package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/insight"
	"github.com/KaramelBytes/edalens/internal/logging"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/report"
	"github.com/KaramelBytes/edalens/internal/table"
)

type stubGenerator struct {
	out   insight.Insights
	calls int
	ctx   context.Context
}

func (s *stubGenerator) Generate(ctx context.Context, _ profiling.Profiles, _ analytics.Bundle) insight.Insights {
	s.calls++
	s.ctx = ctx
	return s.out
}

var longNote = strings.Repeat("abcdefghij", 6)

func people() *table.Table {
	return table.FromRecords("people", []string{"age", "income", "city", "note"}, [][]string{
		{"21", "1000.5", "Paris", longNote},
		{"22", "1200", "Rome", "b"},
		{"23", "900", "Paris", "c"},
		{"35", "", "Oslo", "d"},
		{"41", "3000", "Rome", "e"},
		{"90", "2500", "Paris", "f"},
	})
}

func fixed() Options {
	return Options{
		Source: "people.csv",
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID:  func() string { return "run-1" },
	}
}

func TestRunWithGenerator(t *testing.T) {
	gen := &stubGenerator{out: insight.Insights{
		DatasetSummary: "People.",
		Plots: []plot.Request{
			{Type: "hist", Columns: []string{"age"}},
			{Type: "scatter", Columns: []string{"age", "city"}},
			{Type: "pie", Columns: []string{"city"}},
			{Type: "bar", Columns: []string{"city"}},
		},
	}}
	opt := fixed()
	opt.Generator = gen
	opt.InsightTimeout = time.Minute
	opt.Logger = logging.ForTest(t)

	r, err := Run(context.Background(), people(), opt)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	_, hasDeadline := gen.ctx.Deadline()
	assert.True(t, hasDeadline)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, report.SourceRuntime, r.InsightSource)
	require.NotNil(t, r.Insights)
	assert.Equal(t, 4, r.Requested)
	require.Len(t, r.Artifacts, 2)
	assert.Equal(t, plot.Hist, r.Artifacts[0].Kind)
	assert.Equal(t, plot.Bar, r.Artifacts[1].Kind)
	assert.Equal(t, "2 of 4 requested plots rendered; 2 rejected.", r.PlotStatus())
	assert.Equal(t, 6, r.Analytics.Dataset.Rows)
	assert.Equal(t, []string{"age", "income"}, r.Analytics.NumericColumns)
}

func TestRunSkipsInsights(t *testing.T) {
	r, err := Run(context.Background(), people(), fixed())
	require.NoError(t, err)
	assert.Equal(t, report.SourceSkipped, r.InsightSource)
	assert.Nil(t, r.Insights)
	assert.Empty(t, r.Artifacts)
	assert.Equal(t, "Insights skipped.", r.InsightStatus())
}

func TestRunPlanOverridesGenerator(t *testing.T) {
	gen := &stubGenerator{}
	opt := fixed()
	opt.Generator = gen
	opt.Plan = []plot.Request{{Type: "box", Columns: []string{"income"}}}
	r, err := Run(context.Background(), people(), opt)
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Equal(t, report.SourcePlan, r.InsightSource)
	require.Len(t, r.Artifacts, 1)
	assert.Equal(t, []string{"income"}, r.Artifacts[0].Columns)
}

func TestRunWritesPlotImages(t *testing.T) {
	dir := t.TempDir()
	opt := fixed()
	opt.Plan = []plot.Request{
		{Type: "hist", Columns: []string{"age"}},
		{Type: "pie", Columns: []string{"city"}},
	}
	opt.Renderer = plot.ImageRenderer{Data: plot.DataRenderer{NewID: func() string { return "img" }}, Dir: dir}
	r, err := Run(context.Background(), people(), opt)
	require.NoError(t, err)
	require.Len(t, r.Artifacts, 1)
	assert.Equal(t, filepath.Join(dir, "img.png"), r.Artifacts[0].Image)
	_, err = os.Stat(r.Artifacts[0].Image)
	require.NoError(t, err)
	assert.Equal(t, "1 of 2 requested plots rendered; 1 rejected.", r.PlotStatus())

	opt.Renderer = plot.ImageRenderer{Dir: dir, Format: "bmp"}
	r, err = Run(context.Background(), people(), opt)
	require.NoError(t, err)
	assert.Empty(t, r.Artifacts)
	assert.Equal(t, 1, r.RenderFailed)
	assert.Equal(t, "No plots rendered: 1 rejected, 1 failed to render.", r.PlotStatus())
}

func TestRunDegradedInsightsKeepStatistics(t *testing.T) {
	opt := fixed()
	opt.Generator = &stubGenerator{out: insight.Fallback(insight.ErrNoJSON)}
	r, err := Run(context.Background(), people(), opt)
	require.NoError(t, err)
	assert.Empty(t, r.Artifacts)
	assert.Equal(t, "No plots: insights unavailable.", r.PlotStatus())
	assert.Equal(t, "Insights unavailable.", r.InsightStatus())
	assert.NotEmpty(t, r.Analytics.Numeric)
}

func TestRunRejectsSmallTable(t *testing.T) {
	small := table.FromRecords("s", []string{"a", "b"}, [][]string{{"1", "2"}})
	_, err := Run(context.Background(), small, fixed())
	assert.ErrorIs(t, err, table.ErrPrecondition)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opt := fixed()
	opt.Generator = &stubGenerator{}
	_, err := Run(ctx, people(), opt)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviewTruncatesCells(t *testing.T) {
	r, err := Run(context.Background(), people(), fixed())
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "income", "city", "note"}, r.Preview.Columns)
	require.Len(t, r.Preview.Rows, PreviewRows)
	note := r.Preview.Rows[0][3]
	assert.True(t, strings.HasSuffix(note, "…"))
	assert.Less(t, len([]rune(note)), len(longNote))
	assert.Equal(t, "", r.Preview.Rows[3][1])
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	body := "x,y\n1,2\n2,4\n3,6\n4,8\n5,11\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	r, err := RunFile(context.Background(), path, table.LoadOptions{}, Options{
		Plan: []plot.Request{{Type: "scatter", Columns: []string{"x", "y"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, path, r.Source)
	assert.NotEmpty(t, r.RunID)
	assert.True(t, r.Analytics.Correlations.Available)
	require.Len(t, r.Artifacts, 1)
	assert.Len(t, r.Artifacts[0].Series.Points, 5)

	_, err = RunFile(context.Background(), filepath.Join(dir, "missing.csv"), table.LoadOptions{}, Options{})
	assert.Error(t, err)
}
