// Package llm provides the language model clients used to explain verdicts.
// Gemini and a local Ollama server are supported behind one Client interface.
package llm

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for short, low-latency text such as verdict explanations
	TierLite ModelTier = "lite"
	// TierStandard is for longer answers
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOllama is a local Ollama server
	ProviderOllama Provider = "ollama"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Default Ollama settings
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2:1b"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider             `json:"provider" yaml:"provider"`
	BaseURL  string               `json:"base_url,omitempty" yaml:"base_url,omitempty"` // Ollama host
	Models   map[ModelTier]string `json:"models" yaml:"models"`
}

// DefaultConfig returns the default configuration: a local Ollama model.
func DefaultConfig() *Config {
	return DefaultOllamaConfig()
}

// DefaultOllamaConfig returns the default Ollama configuration
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		BaseURL:  DefaultOllamaHost,
		Models: map[ModelTier]string{
			TierLite:     DefaultOllamaModel,
			TierStandard: DefaultOllamaModel,
		},
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		BaseURL:  c.BaseURL,
		Models:   make(map[ModelTier]string),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
