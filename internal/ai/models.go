package ai

import "sort"

// ModelInfo describes a model's context window and pricing, used to warn
// before an oversized profile prompt is sent.
type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"google/gemini-2.5-flash": {Name: "google/gemini-2.5-flash", ContextTokens: 1000000, InputPerK: 0.0003, OutputPerK: 0.0025},
	"google/gemini-2.5-pro":   {Name: "google/gemini-2.5-pro", ContextTokens: 1000000, InputPerK: 0.00125, OutputPerK: 0.01},
	"openai/gpt-4o-mini":      {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"openai/gpt-4.1-mini":     {Name: "openai/gpt-4.1-mini", ContextTokens: 1000000, InputPerK: 0.0004, OutputPerK: 0.0016},
	"anthropic/claude-3-haiku": {
		Name: "anthropic/claude-3-haiku", ContextTokens: 200000, InputPerK: 0.00025, OutputPerK: 0.00125,
	},
	// Local runtimes are free; context depends on the pulled variant.
	"llama3.1:8b": {Name: "llama3.1:8b", ContextTokens: 128000},
	"qwen2.5:7b":  {Name: "qwen2.5:7b", ContextTokens: 32000},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	return float64(promptTokens)/1000*mi.InputPerK + float64(completionTokens)/1000*mi.OutputPerK, true
}

// Models returns the catalog sorted by name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
