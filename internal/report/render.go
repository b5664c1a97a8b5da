package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/utils"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatHTML     = "html"
)

// Formats lists the supported output formats.
var Formats = []string{FormatMarkdown, FormatTable, FormatJSON, FormatYAML, FormatHTML}

// Ext returns the file extension used for a format.
func Ext(format string) string {
	switch format {
	case FormatTable:
		return ".txt"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatHTML:
		return ".html"
	}
	return ".md"
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, format string) error {
	var out []byte
	switch format {
	case FormatMarkdown, "md", "":
		out = []byte(Markdown(r))
	case FormatTable:
		out = []byte(Text(r))
	case FormatJSON:
		b, err := utils.PrettyJSON(r.Document())
		if err != nil {
			return err
		}
		out = append(b, '\n')
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r.Document()); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_ = enc.Close()
		out = buf.Bytes()
	case FormatHTML:
		out = HTML(r)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
	_, err := w.Write(out)
	return err
}

// Markdown renders the report with markdown tables.
func Markdown(r *Report) string {
	return build(r, func(tw table.Writer) string { return tw.RenderMarkdown() })
}

// Text renders the report with box-drawn terminal tables.
func Text(r *Report) string {
	return build(r, func(tw table.Writer) string {
		tw.SetStyle(table.StyleLight)
		return tw.Render()
	})
}

// HTML renders the markdown report as a standalone HTML page.
func HTML(r *Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "EDA report: " + r.Source,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(Markdown(r)), p, renderer)
}

type renderTable func(table.Writer) string

func build(r *Report, render renderTable) string {
	var b strings.Builder
	ds := r.Analytics.Dataset

	b.WriteString("[DATASET SUMMARY]\n\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("- File: %s\n", r.Source))
	}
	if r.Sheet != "" {
		b.WriteString(fmt.Sprintf("- Sheet: %s\n", r.Sheet))
	}
	b.WriteString(fmt.Sprintf("- Rows: %d\n", ds.Rows))
	b.WriteString(fmt.Sprintf("- Columns: %d\n", ds.Columns))
	b.WriteString(fmt.Sprintf("- Duplicate rows: %.2f%%\n", ds.DuplicateRowsPct))
	b.WriteString(fmt.Sprintf("- Missing values: %.2f%%\n", ds.TotalMissingPct))
	b.WriteString(fmt.Sprintf("- Memory: %.2f MB\n", ds.MemoryUsageMB))
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("- Run: %s (%s)\n", r.RunID, r.GeneratedAt.UTC().Format(time.RFC3339)))
	}

	b.WriteString("\n[COLUMN PROFILES]\n\n")
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Column", "Storage", "Type", "Non-null", "Nulls", "Null %", "Unique", "Details"})
	for _, p := range r.Profiles.List {
		tw.AppendRow(table.Row{p.Name, string(p.Storage), string(p.Logical), p.NonNull, p.Nulls, fmt.Sprintf("%.2f", p.NullPct), p.Unique, details(p)})
	}
	b.WriteString(render(tw) + "\n")

	if len(r.Analytics.NumericColumns) > 0 {
		b.WriteString("\n[NUMERIC ANALYSIS]\n\n")
		tw = table.NewWriter()
		tw.AppendHeader(table.Row{"Column", "Mean", "Median", "Std", "Skew", "Outliers"})
		for _, name := range r.Analytics.NumericColumns {
			s := r.Analytics.Numeric[name]
			tw.AppendRow(table.Row{name, num(s.Mean), num(s.Median), num(s.Std), num(s.Skew), s.OutlierCount})
		}
		b.WriteString(render(tw) + "\n")
	}

	if len(r.Analytics.CategoricalColumns) > 0 {
		b.WriteString("\n[CATEGORICAL ANALYSIS]\n\n")
		tw = table.NewWriter()
		tw.AppendHeader(table.Row{"Column", "Unique", "High cardinality", "Top values"})
		for _, name := range r.Analytics.CategoricalColumns {
			s := r.Analytics.Categorical[name]
			top := make([]string, 0, len(s.Top))
			for _, vc := range s.Top {
				top = append(top, fmt.Sprintf("%s(%d)", vc.Value, vc.Count))
			}
			tw.AppendRow(table.Row{name, s.Unique, yesNo(s.HighCardinality), strings.Join(top, ", ")})
		}
		b.WriteString(render(tw) + "\n")
	}

	b.WriteString("\n[CORRELATIONS]\n\n")
	corr := r.Analytics.Correlations
	if !corr.Available {
		b.WriteString("Not enough numeric columns for correlations.\n")
	} else {
		tw = table.NewWriter()
		tw.AppendHeader(table.Row{"Direction", "Feature 1", "Feature 2", "r"})
		for _, c := range corr.TopPositive {
			tw.AppendRow(table.Row{"positive", c.Feature1, c.Feature2, fmt.Sprintf("%.4f", c.Rounded())})
		}
		for _, c := range corr.TopNegative {
			tw.AppendRow(table.Row{"negative", c.Feature1, c.Feature2, fmt.Sprintf("%.4f", c.Rounded())})
		}
		if len(corr.TopPositive)+len(corr.TopNegative) == 0 {
			b.WriteString("No defined correlations.\n")
		} else {
			b.WriteString(render(tw) + "\n")
		}
	}

	b.WriteString("\n[INSIGHTS]\n\n")
	if status := r.InsightStatus(); status != "" {
		b.WriteString(status + "\n")
	}
	if in := r.Insights; in != nil {
		if in.DatasetSummary != "" && !in.Degraded {
			b.WriteString(in.DatasetSummary + "\n")
		}
		bullets(&b, "Data quality issues", in.DataQualityIssues)
		bullets(&b, "Key insights", in.KeyInsights)
		bullets(&b, "ML suggestions", in.MLSuggestions)
	}

	b.WriteString("\n[PLOTS]\n\n")
	b.WriteString(r.PlotStatus() + "\n")
	for _, a := range r.Artifacts {
		b.WriteString(fmt.Sprintf("- %s (%s: %s) %s\n", a.Title, a.Kind, strings.Join(a.Columns, ", "), seriesSummary(a)))
		if a.Image != "" {
			b.WriteString(fmt.Sprintf("  ![%s](%s)\n", a.Title, filepath.ToSlash(a.Image)))
		}
	}

	if len(r.Preview.Columns) > 0 {
		b.WriteString("\n[PREVIEW]\n\n")
		tw = table.NewWriter()
		header := make(table.Row, len(r.Preview.Columns))
		for i, c := range r.Preview.Columns {
			header[i] = c
		}
		tw.AppendHeader(header)
		for _, row := range r.Preview.Rows {
			tr := make(table.Row, len(row))
			for i, v := range row {
				tr[i] = v
			}
			tw.AppendRow(tr)
		}
		b.WriteString(render(tw) + "\n")
	}
	return b.String()
}

func details(p profiling.ColumnProfile) string {
	switch s := p.Stats.(type) {
	case profiling.NumericStats:
		if s.Empty {
			return "no values"
		}
		return fmt.Sprintf("min %s, max %s, mean %s, std %s", num(s.Min), num(s.Max), num(s.Mean), num(s.Std))
	case profiling.CategoricalStats:
		top := make([]string, 0, len(s.TopValues))
		for _, vc := range s.TopValues {
			top = append(top, fmt.Sprintf("%s(%d)", vc.Value, vc.Count))
		}
		return "top: " + strings.Join(top, ", ")
	case profiling.DatetimeStats:
		if s.Min == nil || s.Max == nil {
			return "no values"
		}
		return fmt.Sprintf("%s to %s", s.Min.Format(time.RFC3339), s.Max.Format(time.RFC3339))
	case profiling.TextStats:
		return "e.g. " + strings.Join(s.Samples, " | ")
	}
	return ""
}

func seriesSummary(a plot.Artifact) string {
	s := a.Series
	switch {
	case len(s.Bins) > 0:
		return fmt.Sprintf("[%d bins]", len(s.Bins))
	case s.Box != nil:
		return fmt.Sprintf("[median %s, IQR %s to %s, %d fliers]", num(&s.Box.Median), num(&s.Box.Q1), num(&s.Box.Q3), len(s.Box.Fliers))
	case len(s.Bars) > 0:
		return fmt.Sprintf("[%d bars]", len(s.Bars))
	case len(s.Points) > 0:
		return fmt.Sprintf("[%d points]", len(s.Points))
	case len(s.TimePoints) > 0:
		return fmt.Sprintf("[%d points]", len(s.TimePoints))
	}
	return ""
}

func bullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + title + ":\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
