// Package pipeline runs one analysis: validate, profile, analytics, insight
// generation, plot dispatch and report assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/insight"
	"github.com/KaramelBytes/edalens/internal/logging"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/report"
	"github.com/KaramelBytes/edalens/internal/table"
	"github.com/KaramelBytes/edalens/internal/utils"
)

const (
	// PreviewRows is the number of rows shown in the report preview.
	PreviewRows = 5
	// previewCellTokens caps each preview cell.
	previewCellTokens = 12
)

// InsightGenerator is satisfied by *insight.Generator.
type InsightGenerator interface {
	Generate(ctx context.Context, profiles profiling.Profiles, bundle analytics.Bundle) insight.Insights
}

// Options configures a run.
type Options struct {
	Source    string
	Sheet     string
	Analytics analytics.Options
	// Generator produces insights and the plot plan. When nil and Plan is
	// nil, insight generation is skipped.
	Generator InsightGenerator
	// Plan, when non-nil, replaces the generator's plot plan.
	Plan []plot.Request
	// InsightTimeout bounds the generator call; 0 means no extra bound.
	InsightTimeout time.Duration
	Renderer       plot.Renderer
	Logger         *slog.Logger
	Now            func() time.Time
	NewID          func() string
}

// Run analyses an in-memory table.
func Run(ctx context.Context, t *table.Table, opt Options) (*report.Report, error) {
	log := logging.OrDiscard(opt.Logger)
	if err := table.Validate(t); err != nil {
		return nil, err
	}
	if opt.Renderer == nil {
		opt.Renderer = plot.DataRenderer{}
	}
	now, newID := time.Now, uuid.NewString
	if opt.Now != nil {
		now = opt.Now
	}
	if opt.NewID != nil {
		newID = opt.NewID
	}

	start := time.Now()
	profiles := profiling.ProfileTable(t)
	bundle := analytics.Compute(t, profiles, opt.Analytics)
	log.Debug("profiled table",
		slog.String("source", opt.Source),
		slog.Int("rows", t.Rows()), slog.Int("columns", t.Width()),
		slog.Duration("elapsed", time.Since(start)))

	r := &report.Report{
		RunID:       newID(),
		Source:      opt.Source,
		Sheet:       opt.Sheet,
		GeneratedAt: now(),
		Profiles:    profiles,
		Analytics:   bundle,
		Preview:     preview(t),
	}

	var plan []plot.Request
	switch {
	case opt.Plan != nil:
		r.InsightSource = report.SourcePlan
		plan = opt.Plan
	case opt.Generator != nil:
		r.InsightSource = report.SourceRuntime
		gctx, cancel := ctx, context.CancelFunc(func() {})
		if opt.InsightTimeout > 0 {
			gctx, cancel = context.WithTimeout(ctx, opt.InsightTimeout)
		}
		in := opt.Generator.Generate(gctx, profiles, bundle)
		cancel()
		r.Insights = &in
		plan = in.Plots
	default:
		r.InsightSource = report.SourceSkipped
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	r.Requested = len(plan)
	if len(plan) > 0 {
		out := plot.Dispatcher{Renderer: opt.Renderer, Logger: log}.Run(t, plan, profiles)
		r.Artifacts, r.RenderFailed = out.Artifacts, out.Failed
		log.Debug("plots dispatched",
			slog.Int("requested", r.Requested), slog.Int("rendered", len(out.Artifacts)),
			slog.Int("rejected", out.Rejected), slog.Int("failed", out.Failed))
	}
	return r, nil
}

// RunFile loads path and runs the analysis on it.
func RunFile(ctx context.Context, path string, load table.LoadOptions, opt Options) (*report.Report, error) {
	t, err := table.Load(path, load)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if opt.Source == "" {
		opt.Source = path
	}
	if opt.Sheet == "" {
		opt.Sheet = load.Sheet
	}
	return Run(ctx, t, opt)
}

func preview(t *table.Table) report.Preview {
	rows := t.Head(PreviewRows)
	for _, row := range rows {
		for i, v := range row {
			row[i] = utils.TruncateToTokenLimit(v, previewCellTokens)
		}
	}
	return report.Preview{Columns: t.Names(), Rows: rows}
}
