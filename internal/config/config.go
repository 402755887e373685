// Package config provides hierarchical configuration loading for taskalign.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"time"

	"github.com/Strob0t/taskalign/internal/domain/evidence"
)

// Config holds all runtime configuration for the taskalign service.
type Config struct {
	Server      Server    `yaml:"server"`
	APIKey      string    `yaml:"api_key"`
	SecretsFile string    `yaml:"secrets_file"` // optional flat YAML map of credentials
	Logging     Logging   `yaml:"logging"`
	Breaker     Breaker   `yaml:"breaker"`
	Rate        Rate      `yaml:"rate"`
	Tracker     Tracker   `yaml:"tracker"`
	CodeHost    CodeHost  `yaml:"codehost"`
	Alignment   Alignment `yaml:"alignment"`
	Cache       Cache     `yaml:"cache"`
	NATS        NATS      `yaml:"nats"`
	Notify      Notify    `yaml:"notify"`
	Webhook     Webhook   `yaml:"webhook"`
	MCP         MCP       `yaml:"mcp"`
	A2A         A2A       `yaml:"a2a"`
	OTEL        OTEL      `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port           string        `yaml:"port"`
	CORSOrigin     string        `yaml:"cors_origin"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LiveFeed       bool          `yaml:"live_feed"` // WebSocket event stream at /ws
}

// Logging holds structured logging configuration.
type Logging struct {
	Level       string `yaml:"level"`
	Service     string `yaml:"service"`
	Async       bool   `yaml:"async"`
	AsyncBuffer int    `yaml:"async_buffer"`
}

// Breaker holds circuit breaker configuration shared by all upstream adapters.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds per-IP rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Tracker selects and authenticates the project tracker.
type Tracker struct {
	Provider string `yaml:"provider"` // registered tracker name, e.g. "jira"
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`
}

// CodeHost selects and authenticates the code hosting platform.
type CodeHost struct {
	Provider string `yaml:"provider"` // "github" | "gitlab" | "gitea"
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
}

// Alignment tunes the verification engine.
type Alignment struct {
	MaxParallel     int                   `yaml:"max_parallel"`
	DefaultMaxTasks int                   `yaml:"default_max_tasks"`
	DomainHints     []evidence.DomainHint `yaml:"domain_hints"`
}

// Cache configures the tracker project-list cache.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L2Bucket    string        `yaml:"l2_bucket"`
	ProjectTTL  time.Duration `yaml:"project_ttl"`
	// IdempotencyTTL bounds how long a verify response is replayed for the
	// same Idempotency-Key.
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// NATS holds NATS JetStream configuration. An empty URL disables events,
// the request consumer and the L2 cache.
type NATS struct {
	URL            string `yaml:"url"`
	ConsumeVerify  bool   `yaml:"consume_verify"`
	PublishReports bool   `yaml:"publish_reports"`
}

// Notify configures chat notifications for misaligned reports.
type Notify struct {
	SlackWebhookURL   string `yaml:"slack_webhook_url"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	MinMisaligned     int    `yaml:"min_misaligned"`
}

// Webhook configures push-triggered verification.
type Webhook struct {
	GitHubSecret string `yaml:"github_secret"`
	GiteaSecret  string `yaml:"gitea_secret"`
	GitLabToken  string `yaml:"gitlab_token"`
	// Projects maps a repository (owner/name) to a tracker project hint.
	Projects map[string]string `yaml:"projects"`
}

// MCP configures the Model Context Protocol server.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"`
}

// A2A configures the Agent-to-Agent task endpoints.
type A2A struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"` // advertised in the agent card
	TaskTTL time.Duration `yaml:"task_ttl"`
}

// OTEL configures OpenTelemetry export.
type OTEL struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			CORSOrigin:     "http://localhost:3000",
			RequestTimeout: 2 * time.Minute,
			LiveFeed:       true,
		},
		Logging: Logging{
			Level:       "info",
			Service:     "taskalign",
			AsyncBuffer: 4096,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 2,
			Burst:             10,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Tracker: Tracker{
			Provider: "jira",
		},
		CodeHost: CodeHost{
			Provider: "github",
		},
		Alignment: Alignment{
			MaxParallel:     8,
			DefaultMaxTasks: 100,
		},
		Cache: Cache{
			L1MaxSizeMB:    16,
			L2Bucket:       "taskalign-cache",
			ProjectTTL:     10 * time.Minute,
			IdempotencyTTL: 24 * time.Hour,
		},
		NATS: NATS{
			PublishReports: true,
		},
		Notify: Notify{
			MinMisaligned: 1,
		},
		MCP: MCP{
			Addr: ":8081",
		},
		A2A: A2A{
			BaseURL: "http://localhost:8080",
			TaskTTL: time.Hour,
		},
		OTEL: OTEL{
			Insecure:   true,
			SampleRate: 1.0,
		},
	}
}

// TrackerSettings returns the factory config map for the tracker adapter.
func (c *Config) TrackerSettings() map[string]string {
	return map[string]string{
		"base_url":             c.Tracker.BaseURL,
		"email":                c.Tracker.Email,
		"api_token":            c.Tracker.APIToken,
		"breaker_max_failures": itoa(c.Breaker.MaxFailures),
		"breaker_cooldown":     c.Breaker.Timeout.String(),
	}
}

// CodeHostSettings returns the factory config map for the code host adapter.
func (c *Config) CodeHostSettings() map[string]string {
	return map[string]string{
		"base_url":             c.CodeHost.BaseURL,
		"token":                c.CodeHost.Token,
		"breaker_max_failures": itoa(c.Breaker.MaxFailures),
		"breaker_cooldown":     c.Breaker.Timeout.String(),
	}
}
