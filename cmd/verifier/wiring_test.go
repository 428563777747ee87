package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/classifier"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/config"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/llm"
)

func TestLoadAppConfig_Defaults(t *testing.T) {
	t.Setenv("MIN_AGE", "")
	t.Setenv("LLM_PROVIDER", "")

	cfg, err := loadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Defaults().OllamaModel, cfg.OllamaModel)
	assert.Equal(t, 18, cfg.MinAge)
}

func TestLoadAppConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_age: 25\nincome_tolerance: 250\nclassifier_url: http://model:8000\n"), 0o644))
	t.Setenv("MIN_AGE", "30")
	t.Setenv("CLASSIFIER_URL", "")

	cfg, err := loadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MinAge, "environment overrides the file")
	assert.Equal(t, 250.0, cfg.IncomeTolerance)
	assert.Equal(t, "http://model:8000", cfg.ClassifierURL)
	assert.Equal(t, 100, cfg.MaxAge)
}

func TestLoadAppConfig_Invalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	_, err := loadAppConfig("")
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "")
	_, err = loadAppConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.MinAge = 21
	cfg.IncomeTolerance = 750

	policy := policyFromConfig(cfg)
	assert.Equal(t, 750.0, policy.Validation.IncomeTolerance)
	assert.Equal(t, 21, policy.Limits.MinAge)
	assert.Equal(t, 20, policy.Limits.MaxDependents)
	assert.Equal(t, 5, policy.SeverityThreshold)
	assert.Equal(t, 10*time.Second, policy.ClassifierTimeout)
	assert.Equal(t, 20*time.Second, policy.ExplainTimeout)
}

func TestNewClassifier(t *testing.T) {
	cfg := config.Defaults()
	_, ok := newClassifier(cfg).(classifier.Rulebook)
	assert.True(t, ok)

	cfg.ClassifierURL = "http://model:8000/"
	c, ok := newClassifier(cfg).(*classifier.HTTPClient)
	require.True(t, ok)
	assert.Equal(t, "http://model:8000", c.BaseURL)
}

func TestLLMConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.OllamaModel = "mistral"
	cfg.OllamaHost = "http://gpu:11434"

	lc := llmConfig(cfg)
	assert.Equal(t, llm.ProviderOllama, lc.Provider)
	assert.Equal(t, "http://gpu:11434", lc.BaseURL)
	assert.Equal(t, "mistral", lc.GetModel(llm.TierLite))

	cfg.LLMProvider = "gemini"
	assert.Equal(t, llm.ProviderGemini, llmConfig(cfg).Provider)
}

func TestNewExplainer_GeminiNeedsKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = "gemini"
	cfg.GeminiAPIKey = ""

	_, _, err := newExplainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestNewExplainer_Ollama(t *testing.T) {
	explainer, release, err := newExplainer(context.Background(), config.Defaults())
	require.NoError(t, err)
	require.NotNil(t, explainer)
	release()
}
