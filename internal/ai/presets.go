package ai

// PresetCatalog returns the built-in models for a known provider.
// The result can be merged into or replace the in-memory catalog.
func PresetCatalog(provider string) (map[string]ModelInfo, bool) {
	provider = canonicalProvider(provider)
	out := map[string]ModelInfo{}
	for _, m := range builtinModels {
		if m.Provider == provider {
			out[m.Name] = m
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

var recommendations = map[string]map[string]string{
	ProviderGroq: {
		"cheap":        "llama-3.1-8b-instant",
		"balanced":     DefaultModel,
		"high-context": "llama-3.3-70b-versatile",
	},
	ProviderOpenRouter: {
		"cheap":        "deepseek/deepseek-r1:free",
		"balanced":     "meta-llama/llama-3.1-70b-instruct",
		"high-context": "anthropic/claude-3.5-sonnet",
	},
	ProviderOpenAI: {
		"cheap":        "gpt-4o-mini",
		"balanced":     "gpt-4o",
		"high-context": "gpt-4.1-mini",
	},
	ProviderOllama: {
		"cheap":        "llama3:latest",
		"balanced":     "llama3.1:8b-instruct",
		"high-context": "phi3:mini-128k-instruct",
	},
}

// RecommendModel returns a recommended model for a provider and tier.
// An empty provider means groq. Tiers: cheap|balanced|high-context.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderGroq
	}
	name, ok := recommendations[canonicalProvider(provider)][tier]
	return name, ok
}

func canonicalProvider(p string) string {
	if p == ProviderLocal {
		return ProviderOllama
	}
	return p
}
