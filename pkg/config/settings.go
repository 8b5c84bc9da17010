package config

import "time"

var (
	ServiceVersion string
	CommitSHA      string
)

type (
	Config struct {
		App       App       `json:"app"`
		Logging   Logging   `json:"logging"`
		Renderer  Renderer  `json:"renderer"`
		Cache     Cache     `json:"cache"`
		Telemetry Telemetry `json:"telemetry"`
	}

	App struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"criteria" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"dev" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"" json:"commit_sha,omitempty"`
		Environment    string `envconfig:"APP_ENVIRONMENT" default:"development" json:"environment"`
	}

	Logging struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOG_FORMAT" default:"json" json:"format"`
	}

	// Renderer controls how snapshots become SQL.
	Renderer struct {
		Placeholder     string            `envconfig:"RENDERER_PLACEHOLDER" default:"dollar" json:"placeholder"`
		Columns         map[string]string `envconfig:"RENDERER_COLUMNS" default:"" json:"columns,omitempty"`
		StrictColumns   bool              `envconfig:"RENDERER_STRICT_COLUMNS" default:"false" json:"strict_columns"`
		BlankAsEmpty    bool              `envconfig:"RENDERER_BLANK_AS_EMPTY" default:"false" json:"blank_as_empty"`
		CaseInsensitive bool              `envconfig:"RENDERER_CASE_INSENSITIVE" default:"false" json:"case_insensitive"`
	}

	Cache struct {
		Enabled bool          `envconfig:"CACHE_ENABLED" default:"true" json:"enabled"`
		TTL     time.Duration `envconfig:"CACHE_TTL" default:"5m" json:"ttl"`
		Size    int           `envconfig:"CACHE_SIZE" default:"1024" json:"size"`
	}

	Telemetry struct {
		ServiceName string  `envconfig:"OTEL_SERVICE_NAME" default:"criteria" json:"service_name"`
		Metrics     Metrics `json:"metrics"`
		Traces      Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		Exporter     string  `envconfig:"TRACES_EXPORTER" default:"none" json:"exporter"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}
)
