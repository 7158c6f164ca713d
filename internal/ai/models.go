package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Model metadata and pricing used for context-window and cost hints.
// Prices are illustrative; verify against the provider's pricing page.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// DefaultModel is the model noon report questions go to unless configured otherwise.
const DefaultModel = "llama3-70b-8192"

var models = map[string]ModelInfo{}

func init() {
	for _, m := range builtinModels {
		models[m.Name] = m
	}
}

var builtinModels = []ModelInfo{
	// Groq
	{Name: "llama3-70b-8192", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.00059, OutputPerK: 0.00079},
	{Name: "llama3-8b-8192", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.00005, OutputPerK: 0.00008},
	{Name: "llama-3.3-70b-versatile", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00059, OutputPerK: 0.00079},
	{Name: "llama-3.1-8b-instant", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00005, OutputPerK: 0.00008},
	{Name: "gemma2-9b-it", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.0002, OutputPerK: 0.0002},
	// OpenRouter
	{Name: "meta-llama/llama-3.1-70b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
	{Name: "deepseek/deepseek-r1:free", Provider: ProviderOpenRouter, ContextTokens: 128000},
	{Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.0006, OutputPerK: 0.0024},
	{Name: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	// OpenAI (official SDK runtime)
	{Name: "gpt-4o-mini", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	{Name: "gpt-4o", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	{Name: "gpt-4.1-mini", Provider: ProviderOpenAI, ContextTokens: 1047576, InputPerK: 0.0004, OutputPerK: 0.0016},
	// Common local (Ollama) tags
	{Name: "llama3:latest", Provider: ProviderOllama, ContextTokens: 8192},
	{Name: "llama3.1:8b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	{Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	{Name: "phi3:mini-128k-instruct", Provider: ProviderOllama, ContextTokens: 128000},
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
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path, e.g.
// { "llama3-70b-8192": {"Provider":"groq","ContextTokens":8192,"InputPerK":0.00059,"OutputPerK":0.00079} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// OverrideCatalog replaces the in-memory catalog entirely.
func OverrideCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	models = m
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns the current catalog sorted by provider then name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
