package config

import (
	"errors"
	"testing"
	"time"
)

// validBaseConfig returns a Config with all required fields set for the given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:             provider,
		ModelName:            "gemini-2.5-flash",
		Temperature:          0.7,
		MaxTokens:            2048,
		Host:                 "0.0.0.0",
		Port:                 8000,
		MaxSessions:          100,
		SessionIdleTimeout:   24 * time.Hour,
		SessionSweepInterval: time.Hour,
		LogLevel:             "info",
	}
	switch provider {
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.ModelName = "gpt-4o"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case ProviderGemini, ProviderGoogleAI:
		t.Setenv("GEMINI_API_KEY", "test-api-key")
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	}
}

// TestValidateSuccess tests successful validation for each provider.
func TestValidateSuccess(t *testing.T) {
	for _, provider := range validProviders {
		t.Run(provider, func(t *testing.T) {
			setEnvForProvider(t, provider)

			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (provider %q): %v", provider, err)
			}
		})
	}
}

// TestValidateNilConfig tests the nil receiver guard.
func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil config = %v, want ErrConfigNil", err)
	}
}

// TestValidateInvalidProvider tests that unsupported providers are rejected.
func TestValidateInvalidProvider(t *testing.T) {
	cfg := validBaseConfig(ProviderGemini)
	cfg.Provider = "unsupported"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unsupported provider, got nil")
	}
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() error = %v, want ErrInvalidProvider", err)
	}
}

// TestValidateProviderAPIKey tests provider-specific API key validation.
func TestValidateProviderAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "gemini missing key", provider: ProviderGemini, wantErr: true},
		{name: "googleai missing key", provider: ProviderGoogleAI, wantErr: true},
		{name: "openai missing key", provider: ProviderOpenAI, wantErr: true},
		{name: "ollama no key needed", provider: ProviderOllama, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all API keys
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")

			cfg := validBaseConfig(tt.provider)
			err := cfg.Validate()

			if tt.wantErr {
				if !errors.Is(err, ErrMissingAPIKey) {
					t.Errorf("Validate() error = %v, want ErrMissingAPIKey", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for provider %q: %v", tt.provider, err)
			}
		})
	}
}

// TestValidateOllamaHost tests that ollama requires a host.
func TestValidateOllamaHost(t *testing.T) {
	cfg := validBaseConfig(ProviderOllama)
	cfg.OllamaHost = ""

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidOllamaHost) {
		t.Errorf("Validate() error = %v, want ErrInvalidOllamaHost", err)
	}
}

// TestValidateRanges tests range checks with sentinel errors.
func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "max tokens zero",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Host = "" },
			wantErr: ErrInvalidHost,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "max sessions zero",
			mutate:  func(c *Config) { c.MaxSessions = 0 },
			wantErr: ErrInvalidSessionLimit,
		},
		{
			name:    "max sessions above cap",
			mutate:  func(c *Config) { c.MaxSessions = MaxAllowedSessions + 1 },
			wantErr: ErrInvalidSessionLimit,
		},
		{
			name:    "idle timeout too short",
			mutate:  func(c *Config) { c.SessionIdleTimeout = time.Minute },
			wantErr: ErrInvalidSessionTimeout,
		},
		{
			name:    "idle timeout too long",
			mutate:  func(c *Config) { c.SessionIdleTimeout = MaxSessionIdleTimeout + time.Hour },
			wantErr: ErrInvalidSessionTimeout,
		},
		{
			name:    "sweep interval above idle timeout",
			mutate:  func(c *Config) { c.SessionSweepInterval = c.SessionIdleTimeout + time.Hour },
			wantErr: ErrInvalidSessionTimeout,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "test-api-key")

			cfg := validBaseConfig(ProviderGemini)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
