// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads Skein's runtime configuration: a home-relative YAML
// file, environment variable overrides, and built-in defaults (spf13/viper
// priority: flags > env > config file > defaults).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the config file basename (without extension).
const DefaultConfigFileName = "config"

// EnvPrefix is the environment variable prefix for overrides, e.g.
// SKEIN_LLM_DEFAULT_PROVIDER.
const EnvPrefix = "SKEIN"

// Config holds all configuration for the skeind process. Priority:
// CLI flags > environment variables > config file > defaults.
type Config struct {
	// DataDir is the Skein data directory. Computed from SKEIN_DATA_DIR or
	// ~/.skein; not itself loaded from the config file.
	DataDir string `mapstructure:"-"`

	// ConfigFileUsed is the path of the config file Load actually read, or
	// empty if none was found. Set by Load, not by the file itself.
	ConfigFileUsed string `mapstructure:"-"`

	// Server holds /health and /metrics HTTP server settings.
	Server ServerConfig `mapstructure:"server"`

	// LLM holds LLM provider configuration, shaped to feed
	// pkg/llm/factory.FactoryConfig directly.
	LLM LLMConfig `mapstructure:"llm"`

	// EventStore holds event-store persistence configuration.
	EventStore EventStoreConfig `mapstructure:"event_store"`

	// Orchestration holds multi-session orchestrator limits.
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`

	// Retry holds the default provider-call retry policy (pkg/turn.RetryConfig).
	Retry RetryConfig `mapstructure:"retry"`

	// Tokens holds context-window warning thresholds (pkg/tokens.Thresholds).
	Tokens TokensConfig `mapstructure:"tokens"`

	// Hooks holds hook-directory watcher configuration (pkg/hooks.DirectoryWatcher).
	Hooks HooksConfig `mapstructure:"hooks"`

	// Logging holds the global logger's level and encoding.
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the /health and /metrics HTTP server's settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LLMConfig mirrors pkg/llm/factory.FactoryConfig's field set so it can be
// unmarshalled straight from the config file and handed to
// factory.NewProviderFactory.
type LLMConfig struct {
	DefaultProvider string `mapstructure:"default_provider"`
	DefaultModel    string `mapstructure:"default_model"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"` // from env only
	AnthropicModel  string `mapstructure:"anthropic_model"`

	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`     // from env only
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"` // from env only
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`     // from env only
	BedrockProfile         string `mapstructure:"bedrock_profile"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`

	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout_seconds"`
}

// EventStoreConfig holds event-store persistence settings.
type EventStoreConfig struct {
	// Path is the SQLite database path (default: $DataDir/skein.db).
	Path string `mapstructure:"path"`

	// Encrypted is loaded from the config file but is not read anywhere:
	// buildRuntime opens the store with eventstore.New, which never enables
	// encryption, and the SQLCipher driver is compiled in by cgo builds
	// (internal/sqlitedriver) regardless of this setting.
	Encrypted bool `mapstructure:"encrypted"`
}

// OrchestrationConfig holds multi-session orchestrator limits.
type OrchestrationConfig struct {
	MaxConcurrentSessions int `mapstructure:"max_concurrent_sessions"`

	// IdleTimeoutMinutes is loaded and validated but not applied: the
	// maintenance reaper (pkg/orchestration.Maintenance) always uses
	// orchestration.DefaultIdleTimeout.
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
}

// RetryConfig mirrors pkg/turn.RetryConfig's field set.
type RetryConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	MaxRetries         int     `mapstructure:"max_retries"`
	InitialDelayMillis int     `mapstructure:"initial_delay_ms"`
	Multiplier         float64 `mapstructure:"multiplier"`
	MaxDelayMillis     int     `mapstructure:"max_delay_ms"`
}

// TokensConfig mirrors pkg/tokens.Thresholds plus the default model context
// limit used when a session doesn't specify one.
type TokensConfig struct {
	ModelContextLimit int64   `mapstructure:"model_context_limit"`
	Warning           float64 `mapstructure:"warning"`
	Alert             float64 `mapstructure:"alert"`
	Critical          float64 `mapstructure:"critical"`
}

// HooksConfig configures the hooks-directory watcher (pkg/hooks.DirectoryWatcher).
type HooksConfig struct {
	// Dir is the directory of externally-edited hook scripts to watch.
	// Empty disables the watcher.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig configures internal/log's global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// Load reads configuration from multiple sources with proper priority:
// environment variables override the config file, which overrides the
// defaults. cfgFile overrides
// the default search path if non-empty.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(DataDir())
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.DataDir = DataDir()
	cfg.ConfigFileUsed = v.ConfigFileUsed()

	if cfg.EventStore.Path == "" {
		cfg.EventStore.Path = filepath.Join(cfg.DataDir, "skein.db")
	}
	if cfg.Hooks.Dir == "" {
		cfg.Hooks.Dir = filepath.Join(cfg.DataDir, "hooks")
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && cfg.LLM.AnthropicAPIKey == "" {
		cfg.LLM.AnthropicAPIKey = apiKey
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5360)

	v.SetDefault("llm.default_provider", "anthropic")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.bedrock_region", "us-west-2")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 1.0)
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("orchestration.max_concurrent_sessions", 16)
	v.SetDefault("orchestration.idle_timeout_minutes", 30)

	v.SetDefault("retry.enabled", true)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay_ms", 500)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_delay_ms", 10000)

	v.SetDefault("tokens.model_context_limit", 200000)
	v.SetDefault("tokens.warning", 0.70)
	v.SetDefault("tokens.alert", 0.80)
	v.SetDefault("tokens.critical", 0.85)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// DataDir returns the Skein data directory.
//
// Priority:
//  1. SKEIN_DATA_DIR environment variable (if set and non-empty)
//  2. ~/.skein (default)
//
// Read directly from os.Getenv, not viper, to avoid a circular dependency
// during config-file location.
func DataDir() string {
	if dir := os.Getenv("SKEIN_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skein"
	}
	return filepath.Join(home, ".skein")
}

func expandPath(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	return path
}

// Validate checks the configuration for obvious misconfigurations before
// skeind starts.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("config: llm.default_provider is required")
	}
	if c.Orchestration.MaxConcurrentSessions < 0 {
		return fmt.Errorf("config: orchestration.max_concurrent_sessions must be >= 0 (0 = unbounded)")
	}
	return nil
}
