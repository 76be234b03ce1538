// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for trackersync.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Root is the base directory for trackersync data. Available to
	// other path fields as ${TRACKERSYNC_ROOT}.
	Root string `yaml:"root"`

	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	GitHub   GitHubConfig   `yaml:"github"`
	Pool     PoolConfig     `yaml:"pool"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig configures the HTTP listener serving webhooks and the
// repository API.
type ServerConfig struct {
	// Listen is the TCP listen address. External access requires a
	// reverse proxy terminating TLS for the public domain.
	// Default: 127.0.0.1:9877
	Listen string `yaml:"listen"`
}

// DatabaseConfig configures the SQLite database holding grants and
// the feedback board.
type DatabaseConfig struct {
	// Path is the database file. Default: ${TRACKERSYNC_ROOT}/trackersync.db
	Path string `yaml:"path"`

	// PoolSize is the number of connections. Default: 4
	PoolSize int `yaml:"pool_size"`
}

// GitHubConfig configures the GitHub App the service acts as.
type GitHubConfig struct {
	// Enabled turns synchronization on. Default: true
	Enabled bool `yaml:"enabled"`

	// Domain is the public host name webhooks are delivered to and
	// the OAuth redirect lives on.
	Domain string `yaml:"domain"`

	// AppID is the GitHub App's numeric ID.
	AppID int64 `yaml:"app_id"`

	// ClientID is the GitHub App's OAuth client ID.
	ClientID string `yaml:"client_id"`

	// PrivateKeyFile holds the App's PEM private key.
	PrivateKeyFile string `yaml:"private_key_file"`

	// ClientSecretFile holds the App's OAuth client secret.
	ClientSecretFile string `yaml:"client_secret_file"`

	// WebhookSecretFile holds the shared secret set on every webhook
	// and checked on every delivery.
	WebhookSecretFile string `yaml:"webhook_secret_file"`

	// APIBaseURL overrides the REST API root for GitHub Enterprise.
	// Default: https://api.github.com
	APIBaseURL string `yaml:"api_base_url"`

	// AuthExpiry is how long a repository grant stays valid after
	// the OAuth handshake. Default: 24h
	AuthExpiry time.Duration `yaml:"auth_expiry"`

	// GrantReclaimInterval is how often expired grants are deleted.
	// Default: 1h
	GrantReclaimInterval time.Duration `yaml:"grant_reclaim_interval"`

	InstallationCache InstallationCacheConfig `yaml:"installation_cache"`
}

// InstallationCacheConfig bounds the cache of per-installation API
// clients.
type InstallationCacheConfig struct {
	// TTL is how long a client is reused. Default: 50m
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries is the most clients held at once. Default: 256
	MaxEntries int `yaml:"max_entries"`
}

// PoolConfig configures the worker pool running outbound updates.
type PoolConfig struct {
	// MinWorkers stay alive while idle. Default: 2
	MinWorkers int `yaml:"min_workers"`

	// MaxWorkers caps concurrent outbound tasks. Default: 64
	MaxWorkers int `yaml:"max_workers"`

	// IdleTimeout retires workers above MinWorkers. Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds the drain on shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "trackersync")

	return &Config{
		Environment: Development,
		Root:        defaultRoot,
		Server: ServerConfig{
			Listen: "127.0.0.1:9877",
		},
		Database: DatabaseConfig{
			Path:     "${TRACKERSYNC_ROOT}/trackersync.db",
			PoolSize: 4,
		},
		GitHub: GitHubConfig{
			Enabled:              true,
			APIBaseURL:           "https://api.github.com",
			AuthExpiry:           24 * time.Hour,
			GrantReclaimInterval: time.Hour,
			InstallationCache: InstallationCacheConfig{
				TTL:        50 * time.Minute,
				MaxEntries: 256,
			},
		},
		Pool: PoolConfig{
			MinWorkers:      2,
			MaxWorkers:      64,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the TRACKERSYNC_CONFIG environment
// variable. There are no fallbacks: if it is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("TRACKERSYNC_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TRACKERSYNC_CONFIG environment variable not set; " +
			"set it to the path of your trackersync.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is on path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil && c.Logging.Level == "debug" {
			overrides = &ConfigOverrides{Logging: &LoggingConfig{Level: "info"}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil && overrides.Server.Listen != "" {
		c.Server.Listen = overrides.Server.Listen
	}
	if overrides.Logging != nil && overrides.Logging.Level != "" {
		c.Logging.Level = overrides.Logging.Level
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"TRACKERSYNC_ROOT": c.Root,
		"HOME":             os.Getenv("HOME"),
	}

	c.Root = expandVars(c.Root, vars)
	vars["TRACKERSYNC_ROOT"] = c.Root

	c.Database.Path = expandVars(c.Database.Path, vars)
	c.GitHub.PrivateKeyFile = expandVars(c.GitHub.PrivateKeyFile, vars)
	c.GitHub.ClientSecretFile = expandVars(c.GitHub.ClientSecretFile, vars)
	c.GitHub.WebhookSecretFile = expandVars(c.GitHub.WebhookSecretFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Root == "" {
		errs = append(errs, fmt.Errorf("root is required"))
	}
	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("database.pool_size must be at least 1"))
	}

	if c.Pool.MinWorkers < 0 {
		errs = append(errs, fmt.Errorf("pool.min_workers must not be negative"))
	}
	if c.Pool.MaxWorkers < 1 || c.Pool.MaxWorkers < c.Pool.MinWorkers {
		errs = append(errs, fmt.Errorf("pool.max_workers must be at least 1 and at least pool.min_workers"))
	}
	if c.Pool.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pool.idle_timeout must be positive"))
	}
	if c.Pool.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pool.shutdown_timeout must be positive"))
	}

	if c.GitHub.Enabled {
		required := map[string]string{
			"github.domain":              c.GitHub.Domain,
			"github.client_id":           c.GitHub.ClientID,
			"github.private_key_file":    c.GitHub.PrivateKeyFile,
			"github.client_secret_file":  c.GitHub.ClientSecretFile,
			"github.webhook_secret_file": c.GitHub.WebhookSecretFile,
		}
		for _, name := range sortedKeys(required) {
			if required[name] == "" {
				errs = append(errs, fmt.Errorf("%s is required when github.enabled is true", name))
			}
		}
		if c.GitHub.AppID <= 0 {
			errs = append(errs, fmt.Errorf("github.app_id is required when github.enabled is true"))
		}
	}
	if c.GitHub.AuthExpiry <= 0 {
		errs = append(errs, fmt.Errorf("github.auth_expiry must be positive"))
	}
	if c.GitHub.GrantReclaimInterval <= 0 {
		errs = append(errs, fmt.Errorf("github.grant_reclaim_interval must be positive"))
	}
	if c.GitHub.InstallationCache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("github.installation_cache.ttl must be positive"))
	}
	if c.GitHub.InstallationCache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("github.installation_cache.max_entries must be at least 1"))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsurePaths creates the root directory and the database's parent
// directory if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Root,
		filepath.Dir(c.Database.Path),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

// ReadSecret reads a secret from a file. Surrounding whitespace is
// trimmed; an empty secret is an error.
func ReadSecret(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading secret from %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
