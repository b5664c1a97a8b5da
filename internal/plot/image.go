package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/edalens/internal/table"
)

// Image formats accepted by ImageRenderer.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// ImageFormats lists the accepted image formats.
var ImageFormats = []string{FormatPNG, FormatSVG}

const (
	defaultWidth  = 8 * vg.Inch
	defaultHeight = 5 * vg.Inch
)

var fill = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// ImageRenderer renders the data series of a job and draws it to an image
// file in Dir. The file path is recorded on Artifact.Image.
type ImageRenderer struct {
	Data   DataRenderer
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length
}

// Render implements Renderer. Drawing or write failures fail the job.
func (r ImageRenderer) Render(t *table.Table, job Job) (Artifact, error) {
	art, err := r.Data.Render(t, job)
	if err != nil {
		return Artifact{}, err
	}
	p, err := draw(t, art)
	if err != nil {
		return Artifact{}, fmt.Errorf("draw %s %v: %w", job.Kind, job.Columns, err)
	}
	path, err := r.save(p, art.ID)
	if err != nil {
		return Artifact{}, err
	}
	art.Image = path
	return art, nil
}

func (r ImageRenderer) save(p *gplot.Plot, id string) (string, error) {
	format := r.Format
	if format == "" {
		format = FormatPNG
	}
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}
	path := filepath.Join(r.Dir, id+"."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create plot file: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func draw(t *table.Table, art Artifact) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = art.Title
	p.X.Label.Text = art.XLabel
	p.Y.Label.Text = art.YLabel

	switch art.Kind {
	case Hist:
		h := &plotter.Histogram{FillColor: fill, LineStyle: plotter.DefaultLineStyle}
		for _, b := range art.Series.Bins {
			h.Bins = append(h.Bins, plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: float64(b.Count)})
		}
		if len(h.Bins) > 0 {
			h.Width = h.Bins[0].Max - h.Bins[0].Min
		}
		p.Add(h)
	case Box:
		col, ok := t.Column(art.Columns[0])
		if !ok {
			return nil, fmt.Errorf("column %q not found", art.Columns[0])
		}
		b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(col.Floats()))
		if err != nil {
			return nil, err
		}
		b.FillColor = fill
		p.Add(b)
		p.HideX()
	case Bar:
		vals := make(plotter.Values, len(art.Series.Bars))
		labels := make([]string, len(art.Series.Bars))
		for i, b := range art.Series.Bars {
			vals[i], labels[i] = float64(b.Count), b.Label
		}
		bc, err := plotter.NewBarChart(vals, vg.Points(20))
		if err != nil {
			return nil, err
		}
		bc.Color = fill
		p.Add(bc)
		p.NominalX(labels...)
	case Scatter:
		xys := make(plotter.XYs, len(art.Series.Points))
		for i, pt := range art.Series.Points {
			xys[i].X, xys[i].Y = pt.X, pt.Y
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = fill
		p.Add(s)
	case Line:
		xys := make(plotter.XYs, len(art.Series.TimePoints))
		for i, pt := range art.Series.TimePoints {
			xys[i].X, xys[i].Y = float64(pt.T.Unix()), pt.Y
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = fill
		p.Add(l)
		p.X.Tick.Marker = gplot.TimeTicks{Format: "2006-01-02"}
	default:
		return nil, fmt.Errorf("unsupported plot kind %q", art.Kind)
	}
	return p, nil
}
