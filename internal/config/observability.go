package config

import (
	"encoding/json"
	"fmt"
)

// OtelConfig holds OTLP trace export configuration.
//
// Tracing uses a local OpenTelemetry collector (or any OTLP/HTTP ingest
// endpoint). See internal/observability for the exporter setup.
type OtelConfig struct {
	// APIKey is an optional ingest API key, sent as a header when set.
	APIKey string `mapstructure:"api_key" json:"api_key" sensitive:"true"`
	// AgentHost is the OTLP/HTTP endpoint (default: localhost:4318)
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name reported on spans (default: sabia)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// MarshalJSON masks the API key so the config can be logged safely.
func (o OtelConfig) MarshalJSON() ([]byte, error) {
	type alias OtelConfig
	a := alias(o)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal otel config: %w", err)
	}
	return data, nil
}

// Enabled reports whether trace export should be wired up.
func (o OtelConfig) Enabled() bool {
	return o.APIKey != ""
}
