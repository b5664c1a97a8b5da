package plot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edalens/internal/table"
)

func fixedID() string { return "id-1" }

func TestRenderHistogram(t *testing.T) {
	tbl, _ := fixture()
	art, err := DataRenderer{NewID: fixedID}.Render(tbl, Job{Kind: Hist, Columns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, "id-1", art.ID)
	assert.Equal(t, "Distribution of age", art.Title)
	assert.Equal(t, "Frequency", art.YLabel)
	require.Len(t, art.Series.Bins, DefaultBins)
	total := 0
	for _, b := range art.Series.Bins {
		total += b.Count
	}
	assert.Equal(t, 6, total)
	assert.Equal(t, 20.0, art.Series.Bins[0].Lo)
	assert.Equal(t, 99.0, art.Series.Bins[DefaultBins-1].Hi)
	assert.Equal(t, 1, art.Series.Bins[DefaultBins-1].Count)
}

func TestRenderHistogramConstantColumn(t *testing.T) {
	bins, err := histogram([]float64{4, 4, 4}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.5, bins[0].Lo)
	assert.Equal(t, 4.5, bins[9].Hi)
	assert.Equal(t, 3, bins[5].Count)
}

func TestRenderHistogramWideRange(t *testing.T) {
	bins, err := histogram([]float64{-1e308, 0, 1e308}, 30)
	require.NoError(t, err)
	assert.Equal(t, -1e308, bins[0].Lo)
	assert.Equal(t, 1e308, bins[29].Hi)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[15].Count)
	assert.Equal(t, 1, bins[29].Count)
	_, err = json.Marshal(bins)
	require.NoError(t, err)

	_, err = histogram([]float64{-1e308, 1e308}, 1)
	assert.ErrorIs(t, err, ErrRange)
}

func TestRenderBoxSummary(t *testing.T) {
	tbl, _ := fixture()
	art, err := DataRenderer{}.Render(tbl, Job{Kind: Box, Columns: []string{"age"}})
	require.NoError(t, err)
	assert.NotEmpty(t, art.ID)
	b := art.Series.Box
	require.NotNil(t, b)
	assert.InDelta(t, 21.25, b.Q1, 1e-9)
	assert.InDelta(t, 22.5, b.Median, 1e-9)
	assert.InDelta(t, 23.75, b.Q3, 1e-9)
	assert.Equal(t, 20.0, b.WhiskerLo)
	assert.Equal(t, 24.0, b.WhiskerHi)
	assert.Equal(t, []float64{99}, b.Fliers)
}

func TestRenderBarScatterLine(t *testing.T) {
	tbl, _ := fixture()
	r := DataRenderer{NewID: fixedID}

	bar, err := r.Render(tbl, Job{Kind: Bar, Columns: []string{"city"}})
	require.NoError(t, err)
	assert.Equal(t, "Top Categories in city", bar.Title)
	assert.Equal(t, []BarValue{{"Paris", 3}, {"Lyon", 3}}, bar.Series.Bars)

	sc, err := r.Render(tbl, Job{Kind: Scatter, Columns: []string{"age", "income"}})
	require.NoError(t, err)
	assert.Equal(t, "age vs income", sc.Title)
	assert.Len(t, sc.Series.Points, 5)

	line, err := r.Render(tbl, Job{Kind: Line, Columns: []string{"joined", "age"}})
	require.NoError(t, err)
	assert.Equal(t, "age over joined", line.Title)
	require.Len(t, line.Series.TimePoints, 5)
	for i := 1; i < len(line.Series.TimePoints); i++ {
		assert.True(t, line.Series.TimePoints[i-1].T.Before(line.Series.TimePoints[i].T))
	}
	assert.Equal(t, 21.0, line.Series.TimePoints[0].Y)
}

func TestRenderNoData(t *testing.T) {
	empty := table.NewColumn("e", table.Float, table.NullCell(), table.NullCell())
	other := table.NewColumn("ts", table.Timestamp, table.TimeCell(time.Now()), table.NullCell())
	tbl := table.New("t", empty, other)
	for _, job := range []Job{
		{Kind: Hist, Columns: []string{"e"}},
		{Kind: Box, Columns: []string{"e"}},
		{Kind: Line, Columns: []string{"ts", "e"}},
	} {
		_, err := DataRenderer{}.Render(tbl, job)
		assert.ErrorIs(t, err, ErrNoData, string(job.Kind))
	}
	_, err := DataRenderer{}.Render(tbl, Job{Kind: "pie", Columns: []string{"e"}})
	assert.Error(t, err)
}
