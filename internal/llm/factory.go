package llm

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderNone     = "none"
	ProviderOpenAI   = "openai"
	ProviderLMStudio = "lmstudio"
	ProviderOllama   = "ollama"
)

// ErrDisabled is returned when no provider is configured.
var ErrDisabled = errors.New("conflict explanations are disabled")

// NewClient creates an LLM client based on provider configuration.
func NewClient(provider, model, baseURL, apiKey string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderNone:
		return nil, ErrDisabled
	case ProviderOpenAI:
		return NewOpenAIClient(model, baseURL, apiKey)
	case ProviderLMStudio, "lm-studio":
		return NewLMStudioClient(model, baseURL)
	case ProviderOllama:
		return NewOllamaClient(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
