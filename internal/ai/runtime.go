package ai

import "context"

// Runtime is implemented by LLM backends (OpenRouter, Ollama). The insight
// generator depends only on this interface.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used for runtime selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Providers lists the registered provider names.
func Providers() []string {
	return []string{ProviderOpenRouter, ProviderOllama}
}
