// Package config provides configuration loading and validation for the CLI
// and the API server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration that can be loaded from a JSON or YAML
// file. All fields are optional; missing values fall back to Defaults().
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // postgres:// URL or SQLite path

	// Explanation model
	LLMProvider  string `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"` // ollama or gemini
	OllamaHost   string `json:"ollama_host,omitempty" yaml:"ollama_host,omitempty"`
	OllamaModel  string `json:"ollama_model,omitempty" yaml:"ollama_model,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	Explain      bool   `json:"explain,omitempty" yaml:"explain,omitempty"` // Explain every verdict

	// Classifier
	ClassifierURL string `json:"classifier_url,omitempty" yaml:"classifier_url,omitempty"` // Empty uses the built-in rulebook

	// Decision policy
	IncomeTolerance          float64 `json:"income_tolerance,omitempty" yaml:"income_tolerance,omitempty"`
	MinAge                   int     `json:"min_age,omitempty" yaml:"min_age,omitempty"`
	MaxAge                   int     `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	MaxFamilySize            int     `json:"max_family_size,omitempty" yaml:"max_family_size,omitempty"`
	MaxDependents            int     `json:"max_dependents,omitempty" yaml:"max_dependents,omitempty"`
	SeverityThreshold        int     `json:"severity_threshold,omitempty" yaml:"severity_threshold,omitempty"`
	ClassifierTimeoutSeconds int     `json:"classifier_timeout_seconds,omitempty" yaml:"classifier_timeout_seconds,omitempty"`
	ExplainTimeoutSeconds    int     `json:"explain_timeout_seconds,omitempty" yaml:"explain_timeout_seconds,omitempty"`

	// Server
	Port             int    `json:"port,omitempty" yaml:"port,omitempty"`
	OperatorUser     string `json:"operator_user,omitempty" yaml:"operator_user,omitempty"`
	OperatorPassHash string `json:"operator_password_hash,omitempty" yaml:"operator_password_hash,omitempty"` // bcrypt hash

	// Logging
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Verbose  bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the values used for every setting left empty.
func Defaults() Config {
	return Config{
		DatabaseURL:              "verifier.db",
		LLMProvider:              "ollama",
		OllamaHost:               "http://localhost:11434",
		OllamaModel:              "llama3.2:1b",
		IncomeTolerance:          500,
		MinAge:                   18,
		MaxAge:                   100,
		MaxFamilySize:            20,
		MaxDependents:            20,
		SeverityThreshold:        5,
		ClassifierTimeoutSeconds: 10,
		ExplainTimeoutSeconds:    20,
		Port:                     8080,
		LogLevel:                 "info",
	}
}

// LoadConfig loads configuration from a JSON file, or from YAML when the file
// ends in .yaml or .yml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"DATABASE_URL":           &c.DatabaseURL,
		"LLM_PROVIDER":           &c.LLMProvider,
		"OLLAMA_HOST":            &c.OllamaHost,
		"OLLAMA_MODEL":           &c.OllamaModel,
		"GEMINI_API_KEY":         &c.GeminiAPIKey,
		"CLASSIFIER_URL":         &c.ClassifierURL,
		"OPERATOR_USER":          &c.OperatorUser,
		"OPERATOR_PASSWORD_HASH": &c.OperatorPassHash,
		"LOG_LEVEL":              &c.LogLevel,
		"LOG_FILE":               &c.LogFile,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"MIN_AGE":                    &c.MinAge,
		"MAX_AGE":                    &c.MaxAge,
		"MAX_FAMILY_SIZE":            &c.MaxFamilySize,
		"MAX_DEPENDENTS":             &c.MaxDependents,
		"SEVERITY_THRESHOLD":         &c.SeverityThreshold,
		"CLASSIFIER_TIMEOUT_SECONDS": &c.ClassifierTimeoutSeconds,
		"EXPLAIN_TIMEOUT_SECONDS":    &c.ExplainTimeoutSeconds,
		"PORT":                       &c.Port,
	}
	for name, field := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", name, err)
		}
		*field = n
	}

	if v := os.Getenv("INCOME_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid INCOME_TOLERANCE: %v", err)
		}
		c.IncomeTolerance = f
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "", "ollama", "gemini":
	default:
		return fmt.Errorf("config error: 'llm_provider' must be ollama or gemini, got %q", c.LLMProvider)
	}

	// Validate numeric ranges
	nonNegative := map[string]int{
		"min_age":                    c.MinAge,
		"max_age":                    c.MaxAge,
		"max_family_size":            c.MaxFamilySize,
		"max_dependents":             c.MaxDependents,
		"severity_threshold":         c.SeverityThreshold,
		"classifier_timeout_seconds": c.ClassifierTimeoutSeconds,
		"explain_timeout_seconds":    c.ExplainTimeoutSeconds,
		"port":                       c.Port,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	if c.IncomeTolerance < 0 {
		return fmt.Errorf("config error: 'income_tolerance' must be non-negative")
	}
	if c.MaxAge != 0 && c.MinAge > c.MaxAge {
		return fmt.Errorf("config error: 'min_age' %d is greater than 'max_age' %d", c.MinAge, c.MaxAge)
	}
	if c.SeverityThreshold > 10 {
		return fmt.Errorf("config error: 'severity_threshold' must be at most 10")
	}
	if c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if (c.OperatorUser == "") != (c.OperatorPassHash == "") {
		return fmt.Errorf("config error: 'operator_user' and 'operator_password_hash' must be set together")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct{ dst, def *string }{
		{&result.DatabaseURL, &defaults.DatabaseURL},
		{&result.LLMProvider, &defaults.LLMProvider},
		{&result.OllamaHost, &defaults.OllamaHost},
		{&result.OllamaModel, &defaults.OllamaModel},
		{&result.GeminiAPIKey, &defaults.GeminiAPIKey},
		{&result.ClassifierURL, &defaults.ClassifierURL},
		{&result.OperatorUser, &defaults.OperatorUser},
		{&result.OperatorPassHash, &defaults.OperatorPassHash},
		{&result.LogLevel, &defaults.LogLevel},
		{&result.LogFile, &defaults.LogFile},
	} {
		if *f.dst == "" {
			*f.dst = *f.def
		}
	}

	// Int fields: use default if zero
	for _, f := range []struct{ dst, def *int }{
		{&result.MinAge, &defaults.MinAge},
		{&result.MaxAge, &defaults.MaxAge},
		{&result.MaxFamilySize, &defaults.MaxFamilySize},
		{&result.MaxDependents, &defaults.MaxDependents},
		{&result.SeverityThreshold, &defaults.SeverityThreshold},
		{&result.ClassifierTimeoutSeconds, &defaults.ClassifierTimeoutSeconds},
		{&result.ExplainTimeoutSeconds, &defaults.ExplainTimeoutSeconds},
		{&result.Port, &defaults.Port},
	} {
		if *f.dst == 0 {
			*f.dst = *f.def
		}
	}

	if result.IncomeTolerance == 0 {
		result.IncomeTolerance = defaults.IncomeTolerance
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
