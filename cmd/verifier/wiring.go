package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/config"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/llm"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/normalize"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/validation"
)

// loadAppConfig reads the optional config file, applies the environment on
// top, fills defaults and validates the result.
func loadAppConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// policyFromConfig converts the flat settings into a pipeline policy.
func policyFromConfig(cfg config.Config) pipeline.Policy {
	return pipeline.Policy{
		Validation: validation.Policy{IncomeTolerance: cfg.IncomeTolerance},
		Limits: normalize.Limits{
			MinAge:        cfg.MinAge,
			MaxAge:        cfg.MaxAge,
			MaxFamilySize: cfg.MaxFamilySize,
			MaxDependents: cfg.MaxDependents,
		},
		SeverityThreshold: cfg.SeverityThreshold,
		ClassifierTimeout: time.Duration(cfg.ClassifierTimeoutSeconds) * time.Second,
		ExplainTimeout:    time.Duration(cfg.ExplainTimeoutSeconds) * time.Second,
	}
}

// newClassifier returns the model server client when a URL is configured and
// the built-in rulebook otherwise.
func newClassifier(cfg config.Config) classifier.Classifier {
	if cfg.ClassifierURL != "" {
		return classifier.NewHTTPClient(cfg.ClassifierURL)
	}
	return classifier.DefaultRulebook()
}

// llmConfig selects the explanation model for the configured provider.
func llmConfig(cfg config.Config) *llm.Config {
	if llm.Provider(cfg.LLMProvider) == llm.ProviderGemini {
		return llm.DefaultGeminiConfig()
	}
	c := llm.DefaultOllamaConfig()
	if cfg.OllamaHost != "" {
		c.BaseURL = cfg.OllamaHost
	}
	if cfg.OllamaModel != "" {
		c.Models[llm.TierLite] = cfg.OllamaModel
		c.Models[llm.TierStandard] = cfg.OllamaModel
	}
	return c
}

// newExplainer builds the explanation model client. The returned func
// releases it.
func newExplainer(ctx context.Context, cfg config.Config) (llm.Explainer, func(), error) {
	lc := llmConfig(cfg)
	if lc.Provider == llm.ProviderGemini && cfg.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required when llm_provider is gemini")
	}
	client, err := llm.NewClient(ctx, lc, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewExplainer(client), func() { _ = client.Close() }, nil
}
