package cmd

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/edalens/internal/ai"
	"github.com/KaramelBytes/edalens/internal/analytics"
	cfgpkg "github.com/KaramelBytes/edalens/internal/config"
	"github.com/KaramelBytes/edalens/internal/insight"
	"github.com/KaramelBytes/edalens/internal/pipeline"
	"github.com/KaramelBytes/edalens/internal/plot"
	"github.com/KaramelBytes/edalens/internal/report"
	"github.com/KaramelBytes/edalens/internal/table"
)

// analysisFlags are shared by analyze and analyze-batch.
type analysisFlags struct {
	sheet      string
	format     string
	noInsights bool
	provider   string
	model      string
	ollamaHost string
	maxTokens  int
	timeoutSec int
	planPath   string
	highCard   int
	topN       int
	plotsDir   string
	plotFormat string
}

func (a *analysisFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&a.sheet, "sheet", "", "XLSX: sheet name to analyze (default first sheet)")
	fs.StringVarP(&a.format, "format", "f", report.FormatMarkdown, "output format: "+strings.Join(report.Formats, "|"))
	fs.BoolVar(&a.noInsights, "no-insights", false, "skip the LLM call; statistics only")
	fs.StringVar(&a.provider, "provider", "", "LLM provider: openrouter|ollama (default from config)")
	fs.StringVar(&a.model, "model", "", "model name (default from config)")
	fs.StringVar(&a.ollamaHost, "ollama-host", "", "Ollama host (overrides config)")
	fs.IntVar(&a.maxTokens, "max-tokens", 0, "max completion tokens (default from config)")
	fs.IntVar(&a.timeoutSec, "timeout", 0, "insight generation timeout in seconds (default from config)")
	fs.StringVar(&a.planPath, "plan", "", "read the plot plan from a JSON/YAML file instead of calling the LLM")
	fs.IntVar(&a.highCard, "high-card-threshold", 0, "unique-value count above which a categorical column is high cardinality")
	fs.IntVar(&a.topN, "top-n", 0, "number of top positive/negative correlations to report")
	fs.StringVar(&a.plotsDir, "plots-dir", "", "write plot images to this directory (default: data series only)")
	fs.StringVar(&a.plotFormat, "plot-format", plot.FormatPNG, "plot image format: "+strings.Join(plot.ImageFormats, "|"))
}

func (a *analysisFlags) validate() error {
	if !slices.Contains(report.Formats, a.format) {
		return fmt.Errorf("unsupported --format: %s (use %s)", a.format, strings.Join(report.Formats, "|"))
	}
	if !slices.Contains(plot.ImageFormats, a.plotFormat) {
		return fmt.Errorf("unsupported --plot-format: %s (use %s)", a.plotFormat, strings.Join(plot.ImageFormats, "|"))
	}
	return nil
}

func (a *analysisFlags) loadOptions() table.LoadOptions {
	return table.LoadOptions{Sheet: a.sheet}
}

// pipelineOptions resolves flags over config into a run configuration.
// The runtime is only built when insight generation will actually run.
func (a *analysisFlags) pipelineOptions(c *cfgpkg.Global) (pipeline.Options, error) {
	opt := pipeline.Options{
		Sheet:     a.sheet,
		Analytics: analytics.DefaultOptions(),
		Logger:    newLogger(),
	}
	if c != nil {
		opt.Analytics.HighCardinalityThreshold = c.HighCardinalityThreshold
		opt.Analytics.TopCorrelations = c.TopCorrelations
		opt.InsightTimeout = time.Duration(c.InsightTimeoutSec) * time.Second
	}
	if a.highCard > 0 {
		opt.Analytics.HighCardinalityThreshold = a.highCard
	}
	if a.topN > 0 {
		opt.Analytics.TopCorrelations = a.topN
	}
	if a.timeoutSec > 0 {
		opt.InsightTimeout = time.Duration(a.timeoutSec) * time.Second
	}
	if a.plotsDir != "" {
		opt.Renderer = plot.ImageRenderer{Dir: a.plotsDir, Format: a.plotFormat}
	}

	if a.planPath != "" {
		data, err := os.ReadFile(a.planPath)
		if err != nil {
			return opt, fmt.Errorf("read plan: %w", err)
		}
		plan, err := insight.ParsePlan(a.planPath, data)
		if err != nil {
			return opt, err
		}
		opt.Plan = plan
		return opt, nil
	}
	if a.noInsights {
		return opt, nil
	}

	rt, provider, err := buildRuntime(c, runtimeOptions{ProviderFlag: a.provider, OllamaHost: a.ollamaHost})
	if err != nil {
		return opt, err
	}
	gen := insight.Options{
		Model:       selectModel(c, a.model, provider),
		MaxTokens:   4096,
		Temperature: 0.2,
		Logger:      opt.Logger,
	}
	if c != nil {
		if c.MaxTokens > 0 {
			gen.MaxTokens = c.MaxTokens
		}
		gen.Temperature = c.Temperature
	}
	if a.maxTokens > 0 {
		gen.MaxTokens = a.maxTokens
	}
	opt.Generator = insight.NewGenerator(rt, gen)
	return opt, nil
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := normalizeProvider(opts.ProviderFlag)
	if providerName == "" && cfg != nil {
		providerName = normalizeProvider(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
	if cfg != nil {
		rc.APIKey = cfg.APIKey
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
		if cfg != nil {
			rc.HTTPTimeout = cfg.HTTPTimeout(ai.ProviderOllama)
		}
	}

	client, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return client, providerName, nil
}

func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ""
	case "ollama", "local":
		return ai.ProviderOllama
	case "openrouter", "openai", "anthropic", "google", "gemini", "meta", "llama":
		return ai.ProviderOpenRouter
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

func selectModel(cfg *cfgpkg.Global, explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		// OpenRouter model ids are vendor-prefixed; Ollama tags are not.
		if provider != ai.ProviderOllama || !strings.Contains(cfg.DefaultModel, "/") {
			return cfg.DefaultModel
		}
	}
	if provider == ai.ProviderOllama {
		return "llama3.1:8b"
	}
	return "google/gemini-2.5-flash"
}

// renderReport renders r into memory.
func renderReport(r *report.Report, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := report.Render(&buf, r, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// insightWarning returns the user-facing warning for a degraded run, or "".
func insightWarning(r *report.Report) string {
	if r.Insights == nil || !r.Insights.Degraded {
		return ""
	}
	msg := "⚠ Insights unavailable"
	if len(r.Insights.DataQualityIssues) > 0 {
		msg += ": " + r.Insights.DataQualityIssues[0]
	}
	return msg
}
