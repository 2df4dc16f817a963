package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// validProviders lists the supported values for Config.Provider.
var validProviders = []string{ProviderGemini, ProviderGoogleAI, ProviderOllama, ProviderOpenAI}

// validLogLevels lists the supported values for Config.LogLevel.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. API key validation (provider-dependent; keys are read by Genkit, not Viper)
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	}

	// 3. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	// Reference: Gemini API documentation
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	// Reference: https://ai.google.dev/gemini-api/docs/models
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 4. Server validation
	if c.Host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidHost)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.Port)
	}

	// 5. Session store validation
	if c.MaxSessions < 1 || c.MaxSessions > MaxAllowedSessions {
		return fmt.Errorf("%w: max_sessions must be between 1 and %d, got %d",
			ErrInvalidSessionLimit, MaxAllowedSessions, c.MaxSessions)
	}

	if c.SessionIdleTimeout < MinSessionIdleTimeout || c.SessionIdleTimeout > MaxSessionIdleTimeout {
		return fmt.Errorf("%w: session_idle_timeout must be between %s and %s, got %s",
			ErrInvalidSessionTimeout, MinSessionIdleTimeout, MaxSessionIdleTimeout, c.SessionIdleTimeout)
	}

	if c.SessionSweepInterval <= 0 || c.SessionSweepInterval > c.SessionIdleTimeout {
		return fmt.Errorf("%w: session_sweep_interval must be positive and at most session_idle_timeout, got %s",
			ErrInvalidSessionTimeout, c.SessionSweepInterval)
	}

	// 6. Logging validation
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidLogLevel, c.LogLevel, validLogLevels)
	}

	return nil
}
