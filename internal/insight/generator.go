package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/edalens/internal/ai"
	"github.com/KaramelBytes/edalens/internal/analytics"
	"github.com/KaramelBytes/edalens/internal/logging"
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/utils"
)

// Options configures a Generator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// Generator asks a runtime for insights over profile metadata.
type Generator struct {
	runtime ai.Runtime
	opt     Options
	log     *slog.Logger
}

// NewGenerator binds a runtime and its request settings.
func NewGenerator(rt ai.Runtime, opt Options) *Generator {
	return &Generator{runtime: rt, opt: opt, log: logging.OrDiscard(opt.Logger)}
}

// Generate makes a single runtime call and never fails: any error or
// unparsable reply yields Fallback.
func (g *Generator) Generate(ctx context.Context, profiles profiling.Profiles, bundle analytics.Bundle) Insights {
	in, err := g.generate(ctx, profiles, bundle)
	if err != nil {
		g.log.Warn("insight generation degraded", slog.String("error", err.Error()))
		return Fallback(err)
	}
	return in
}

func (g *Generator) generate(ctx context.Context, profiles profiling.Profiles, bundle analytics.Bundle) (Insights, error) {
	if g == nil || g.runtime == nil {
		return Insights{}, errors.New("no insight runtime configured")
	}
	p, err := BuildPrompt(profiles, bundle)
	if err != nil {
		return Insights{}, err
	}
	tokens := utils.CountTokens(p.System) + utils.CountTokens(p.User)
	g.log.Debug("insight prompt built",
		slog.String("model", g.opt.Model),
		slog.Int("prompt_tokens_est", tokens),
		slog.Any("sections", utils.TokenBreakdown(p.Sections)))
	if mi, ok := ai.LookupModel(g.opt.Model); ok && tokens+g.opt.MaxTokens > mi.ContextTokens {
		g.log.Warn("prompt may exceed model context window",
			slog.Int("prompt_tokens_est", tokens), slog.Int("context_tokens", mi.ContextTokens))
	}

	resp, err := g.runtime.Generate(ctx, ai.GenerateRequest{
		Model: g.opt.Model,
		Messages: []ai.Message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		MaxTokens:      g.opt.MaxTokens,
		Temperature:    g.opt.Temperature,
		ResponseFormat: ai.JSONObject,
	})
	if err != nil {
		return Insights{}, fmt.Errorf("insight request: %w", err)
	}
	if cost, ok := ai.EstimateCostUSD(g.opt.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
		g.log.Debug("insight response",
			slog.String("request_id", resp.RequestID),
			slog.Int("total_tokens", resp.Usage.TotalTokens),
			slog.Float64("cost_usd_est", cost))
	}
	text := resp.Content()
	if text == "" {
		return Insights{}, errors.New("empty response from insight runtime")
	}
	return Parse(text)
}
