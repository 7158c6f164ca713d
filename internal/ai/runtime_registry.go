package ai

import (
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	Retry RetryConfig
	// Hosted providers
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

// Providers lists registered provider names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hosted(ep Endpoint) RuntimeFactory {
	return func(c RuntimeConfig) Runtime {
		if c.BaseURL != "" {
			ep.BaseURL = c.BaseURL
		}
		return NewClient(ep, c.APIKey, c.Retry)
	}
}

func ollama(c RuntimeConfig) Runtime {
	rc := c.Retry.withDefaults(RetryConfig{HTTPTimeout: 60 * time.Second, MaxAttempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second})
	return NewOllamaClient(c.Host, rc)
}

func init() {
	RegisterRuntime(ProviderGroq, hosted(GroqEndpoint))
	RegisterRuntime(ProviderOpenRouter, hosted(OpenRouterEndpoint))
	RegisterRuntime(ProviderOpenAI, func(c RuntimeConfig) Runtime { return NewSDKClient(c.APIKey, c.BaseURL, c.Retry) })
	RegisterRuntime(ProviderOllama, ollama)
	RegisterRuntime(ProviderLocal, ollama)
}

// KeyEnv returns the environment variable holding the API key for provider,
// or "" for providers that need none.
func KeyEnv(provider string) string {
	switch provider {
	case ProviderGroq:
		return GroqEndpoint.KeyEnv
	case ProviderOpenRouter:
		return OpenRouterEndpoint.KeyEnv
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	}
	return ""
}
