// Package config provides configuration loading for renovd.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/renovd/internal/imaging"
	"github.com/fyrsmithlabs/renovd/internal/pipeline"
	"github.com/fyrsmithlabs/renovd/internal/render"
)

// Config is the full renovd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// UpstreamConfig configures the model endpoints. The API key is required; the
// base URLs and model names have working defaults. All values are resolved
// once at startup; there is no hot reload.
type UpstreamConfig struct {
	APIKey        Secret `koanf:"api_key"`
	DirectBaseURL string `koanf:"direct_base_url"`
	ProxyBaseURL  string `koanf:"proxy_base_url"`
	Model         string `koanf:"model"`
	ImageModel    string `koanf:"image_model"`
}

// PipelineConfig bounds one renovation run.
type PipelineConfig struct {
	Budget            Duration `koanf:"budget"`
	MaxPhotoDimension int      `koanf:"max_photo_dimension"`
	PhotoQuality      int      `koanf:"photo_quality"`
	Fidelity          string   `koanf:"fidelity"`
}

// CatalogConfig configures the catalog provider and its cache.
type CatalogConfig struct {
	BaseURL         string   `koanf:"base_url"`
	CacheTTL        Duration `koanf:"cache_ttl"`
	CacheMaxEntries int      `koanf:"cache_max_entries"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OTEL trace export.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8480
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Pipeline.Budget == 0 {
		cfg.Pipeline.Budget = Duration(pipeline.DefaultBudget)
	}
	if cfg.Pipeline.MaxPhotoDimension == 0 {
		cfg.Pipeline.MaxPhotoDimension = imaging.DefaultMaxDimension
	}
	if cfg.Pipeline.PhotoQuality == 0 {
		cfg.Pipeline.PhotoQuality = imaging.DefaultQuality
	}
	if cfg.Pipeline.Fidelity == "" {
		cfg.Pipeline.Fidelity = string(render.FidelityStructureLocked)
	}

	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = Duration(5 * time.Minute)
	}
	if cfg.Catalog.CacheMaxEntries == 0 {
		cfg.Catalog.CacheMaxEntries = 100
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "renovd"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server http_port out of range: %d", c.Server.HTTPPort)
	}
	if !c.Upstream.APIKey.IsSet() {
		return fmt.Errorf("upstream api_key is required")
	}
	if c.Upstream.ProxyBaseURL == "" {
		return fmt.Errorf("upstream proxy_base_url is required")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base_url is required")
	}
	switch render.FidelityMode(c.Pipeline.Fidelity) {
	case render.FidelityBaseline, render.FidelityStructureLocked, render.FidelityTwoPassLocked:
	default:
		return fmt.Errorf("unknown pipeline fidelity: %q", c.Pipeline.Fidelity)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Logging.Format)
	}
	return nil
}
