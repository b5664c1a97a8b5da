package plot

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

var (
	// ErrNoData is returned when a job's columns have nothing to draw.
	ErrNoData = errors.New("no data to plot")
	// ErrRange is returned when values span more than a float64 can bin.
	ErrRange = errors.New("value range not representable")
)

const (
	// DefaultBins is the histogram bin count.
	DefaultBins = 30
	barLimit    = 10
	whiskerIQR  = 1.5
)

// Artifact is one rendered plot, tagged with the originating kind and columns.
type Artifact struct {
	ID      string   `json:"id" yaml:"id"`
	Kind    Kind     `json:"kind" yaml:"kind"`
	Columns []string `json:"columns" yaml:"columns"`
	Title   string   `json:"title" yaml:"title"`
	XLabel  string   `json:"x_label" yaml:"x_label"`
	YLabel  string   `json:"y_label,omitempty" yaml:"y_label,omitempty"`
	Series  Series   `json:"series" yaml:"series"`
	// Image is the written image file, when an ImageRenderer drew the plot.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Series holds the drawable data; which field is set depends on Kind.
type Series struct {
	Bins       []Bin       `json:"bins,omitempty" yaml:"bins,omitempty"`
	Box        *BoxSummary `json:"box,omitempty" yaml:"box,omitempty"`
	Bars       []BarValue  `json:"bars,omitempty" yaml:"bars,omitempty"`
	Points     []Point     `json:"points,omitempty" yaml:"points,omitempty"`
	TimePoints []TimePoint `json:"time_points,omitempty" yaml:"time_points,omitempty"`
}

// Bin is a half-open histogram bin [Lo, Hi); the last bin is closed.
type Bin struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Count int     `json:"count" yaml:"count"`
}

// BoxSummary is a five-number summary with whiskers at 1.5 IQR.
type BoxSummary struct {
	WhiskerLo float64   `json:"whisker_lo" yaml:"whisker_lo"`
	Q1        float64   `json:"q1" yaml:"q1"`
	Median    float64   `json:"median" yaml:"median"`
	Q3        float64   `json:"q3" yaml:"q3"`
	WhiskerHi float64   `json:"whisker_hi" yaml:"whisker_hi"`
	Fliers    []float64 `json:"fliers,omitempty" yaml:"fliers,omitempty"`
}

// BarValue is one category bar.
type BarValue struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Point is a scatter point.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// TimePoint is a line point.
type TimePoint struct {
	T time.Time `json:"t" yaml:"t"`
	Y float64   `json:"y" yaml:"y"`
}

// DataRenderer renders jobs into data series rather than images.
type DataRenderer struct {
	// Bins is the histogram bin count; 0 means DefaultBins.
	Bins int
	// NewID generates artifact IDs; nil means random UUIDs.
	NewID func() string
}

// Render implements Renderer.
func (r DataRenderer) Render(t *table.Table, job Job) (Artifact, error) {
	cols := make([]*table.Column, len(job.Columns))
	for i, name := range job.Columns {
		c, ok := t.Column(name)
		if !ok {
			return Artifact{}, fmt.Errorf("render %s: column %q not found", job.Kind, name)
		}
		cols[i] = c
	}
	art := Artifact{ID: r.id(), Kind: job.Kind, Columns: job.Columns}
	var err error
	switch job.Kind {
	case Hist:
		art.Title, art.XLabel, art.YLabel = "Distribution of "+cols[0].Name, cols[0].Name, "Frequency"
		art.Series.Bins, err = histogram(cols[0].Floats(), r.bins())
	case Box:
		art.Title, art.XLabel = "Boxplot of "+cols[0].Name, cols[0].Name
		art.Series.Box, err = boxSummary(cols[0].Floats())
	case Bar:
		art.Title, art.XLabel, art.YLabel = "Top Categories in "+cols[0].Name, cols[0].Name, "Count"
		art.Series.Bars, err = bars(cols[0])
	case Scatter:
		art.Title, art.XLabel, art.YLabel = cols[0].Name+" vs "+cols[1].Name, cols[0].Name, cols[1].Name
		art.Series.Points, err = points(cols[0], cols[1])
	case Line:
		art.Title, art.XLabel, art.YLabel = cols[1].Name+" over "+cols[0].Name, cols[0].Name, cols[1].Name
		art.Series.TimePoints, err = timePoints(cols[0], cols[1])
	default:
		err = fmt.Errorf("unsupported plot kind %q", job.Kind)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s %v: %w", job.Kind, job.Columns, err)
	}
	return art, nil
}

func (r DataRenderer) id() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r DataRenderer) bins() int {
	if r.Bins > 0 {
		return r.Bins
	}
	return DefaultBins
}

func histogram(vals []float64, n int) ([]Bin, error) {
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	s := profiling.Sorted(vals)
	lo, hi := s[0], s[len(s)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	// Scaled before subtracting so hi-lo cannot overflow.
	fn := float64(n)
	width := hi/fn - lo/fn
	if math.IsInf(width, 0) || math.IsNaN(width) || width <= 0 {
		return nil, fmt.Errorf("%w: range [%g, %g] cannot be split into %d bins", ErrRange, lo, hi, n)
	}
	out := make([]Bin, n)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[n-1].Hi = hi
	for _, v := range vals {
		i := int((v/fn - lo/fn) / width * fn)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out, nil
}

func boxSummary(vals []float64) (*BoxSummary, error) {
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	s := profiling.Sorted(vals)
	b := &BoxSummary{
		Q1:     profiling.Quantile(s, 0.25),
		Median: profiling.Quantile(s, 0.5),
		Q3:     profiling.Quantile(s, 0.75),
	}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-whiskerIQR*iqr, b.Q3+whiskerIQR*iqr
	b.WhiskerLo, b.WhiskerHi = b.Q1, b.Q3
	seenLo := false
	for _, v := range s {
		if v < loFence || v > hiFence {
			b.Fliers = append(b.Fliers, v)
			continue
		}
		if !seenLo {
			b.WhiskerLo = v
			seenLo = true
		}
		b.WhiskerHi = v
	}
	return b, nil
}

func bars(col *table.Column) ([]BarValue, error) {
	vc := col.ValueCounts()
	if len(vc) == 0 {
		return nil, ErrNoData
	}
	if len(vc) > barLimit {
		vc = vc[:barLimit]
	}
	out := make([]BarValue, len(vc))
	for i, v := range vc {
		out[i] = BarValue{Label: v.Value, Count: v.Count}
	}
	return out, nil
}

func points(x, y *table.Column) ([]Point, error) {
	var out []Point
	for r := 0; r < min(x.Len(), y.Len()); r++ {
		vx, okX := x.Number(x.Cells[r])
		vy, okY := y.Number(y.Cells[r])
		if okX && okY {
			out = append(out, Point{X: vx, Y: vy})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func timePoints(x, y *table.Column) ([]TimePoint, error) {
	var out []TimePoint
	for r := 0; r < min(x.Len(), y.Len()); r++ {
		cx := x.Cells[r]
		vy, okY := y.Number(y.Cells[r])
		if cx.Valid && okY {
			out = append(out, TimePoint{T: cx.Time, Y: vy})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].T.Before(out[j].T) })
	return out, nil
}
