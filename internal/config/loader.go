package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/taskalign/internal/secrets"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskalign.yaml"

// SecretKeys lists the environment variables read through the secrets vault.
var SecretKeys = []string{
	"JIRA_BASE_URL", "JIRA_EMAIL", "JIRA_API_TOKEN",
	"GITHUB_TOKEN", "GITLAB_TOKEN", "GITEA_TOKEN",
	"SLACK_WEBHOOK_URL", "DISCORD_WEBHOOK_URL", "TASKALIGN_API_KEY", "TASKALIGN_MCP_API_KEY",
	"TASKALIGN_WEBHOOK_GITHUB_SECRET", "TASKALIGN_WEBHOOK_GITEA_SECRET", "TASKALIGN_WEBHOOK_GITLAB_TOKEN",
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TASKALIGN_PORT")
	setString(&cfg.Server.CORSOrigin, "TASKALIGN_CORS_ORIGIN")
	setString(&cfg.SecretsFile, "TASKALIGN_SECRETS_FILE")
	setDuration(&cfg.Server.RequestTimeout, "TASKALIGN_REQUEST_TIMEOUT")
	setBool(&cfg.Server.LiveFeed, "TASKALIGN_LIVE_FEED")
	setString(&cfg.Logging.Level, "TASKALIGN_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKALIGN_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TASKALIGN_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TASKALIGN_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKALIGN_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "TASKALIGN_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TASKALIGN_RATE_BURST")

	// Upstreams
	setString(&cfg.Tracker.Provider, "TASKALIGN_TRACKER")
	setString(&cfg.CodeHost.Provider, "TASKALIGN_CODEHOST")
	setString(&cfg.CodeHost.BaseURL, "TASKALIGN_CODEHOST_URL")

	// Alignment
	setInt(&cfg.Alignment.MaxParallel, "TASKALIGN_MAX_PARALLEL")
	setInt(&cfg.Alignment.DefaultMaxTasks, "TASKALIGN_DEFAULT_MAX_TASKS")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TASKALIGN_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TASKALIGN_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.ProjectTTL, "TASKALIGN_CACHE_PROJECT_TTL")

	// NATS
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.ConsumeVerify, "TASKALIGN_NATS_CONSUME")

	// MCP
	setBool(&cfg.MCP.Enabled, "TASKALIGN_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "TASKALIGN_MCP_ADDR")

	// A2A
	setBool(&cfg.A2A.Enabled, "TASKALIGN_A2A_ENABLED")
	setString(&cfg.A2A.BaseURL, "TASKALIGN_A2A_BASE_URL")

	// OTEL
	setBool(&cfg.OTEL.Enabled, "TASKALIGN_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setFloat64(&cfg.OTEL.SampleRate, "TASKALIGN_OTEL_SAMPLE_RATE")
}

// ApplySecrets overlays credentials held in the vault. Secrets win over
// YAML so tokens never need to live in the config file.
func ApplySecrets(cfg *Config, v *secrets.Vault) {
	setSecret(&cfg.Tracker.BaseURL, v, "JIRA_BASE_URL")
	setSecret(&cfg.Tracker.Email, v, "JIRA_EMAIL")
	setSecret(&cfg.Tracker.APIToken, v, "JIRA_API_TOKEN")
	switch cfg.CodeHost.Provider {
	case "github":
		setSecret(&cfg.CodeHost.Token, v, "GITHUB_TOKEN")
	case "gitlab":
		setSecret(&cfg.CodeHost.Token, v, "GITLAB_TOKEN")
	case "gitea":
		setSecret(&cfg.CodeHost.Token, v, "GITEA_TOKEN")
	}
	setSecret(&cfg.Notify.SlackWebhookURL, v, "SLACK_WEBHOOK_URL")
	setSecret(&cfg.Notify.DiscordWebhookURL, v, "DISCORD_WEBHOOK_URL")
	setSecret(&cfg.APIKey, v, "TASKALIGN_API_KEY")
	setSecret(&cfg.MCP.APIKey, v, "TASKALIGN_MCP_API_KEY")
	setSecret(&cfg.Webhook.GitHubSecret, v, "TASKALIGN_WEBHOOK_GITHUB_SECRET")
	setSecret(&cfg.Webhook.GiteaSecret, v, "TASKALIGN_WEBHOOK_GITEA_SECRET")
	setSecret(&cfg.Webhook.GitLabToken, v, "TASKALIGN_WEBHOOK_GITLAB_TOKEN")
}

// validate checks structural constraints. Missing upstream credentials are
// not a load error; the alignment service reports them per request.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Tracker.Provider == "" {
		return errors.New("tracker.provider is required")
	}
	if cfg.CodeHost.Provider == "" {
		return errors.New("codehost.provider is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Alignment.MaxParallel < 1 {
		return errors.New("alignment.max_parallel must be >= 1")
	}
	if cfg.Alignment.DefaultMaxTasks < 1 {
		return errors.New("alignment.default_max_tasks must be >= 1")
	}
	for i, h := range cfg.Alignment.DomainHints {
		if strings.TrimSpace(h.Pattern) == "" {
			return fmt.Errorf("alignment.domain_hints[%d].pattern is required", i)
		}
		if len(h.Keywords) < 2 {
			return fmt.Errorf("alignment.domain_hints[%d] needs at least 2 keywords", i)
		}
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be within [0, 1]")
	}
	return nil
}

func setSecret(dst *string, v *secrets.Vault, key string) {
	if v == nil {
		return
	}
	if s := v.Get(key); s != "" {
		*dst = s
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
