// Package config handles configuration loading and management for atelier.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for atelier.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Run        RunConfig        `mapstructure:"run"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Watch      WatchConfig      `mapstructure:"watch"`
}

// AnthropicConfig holds generation backend settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes generation through AWS Bedrock instead of the
	// direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// EmbeddingsConfig holds embedding backend settings.
type EmbeddingsConfig struct {
	APIKey string `mapstructure:"api_key"`
	// BaseURL points at any OpenAI-compatible endpoint, e.g. a local
	// inference server.
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// RunConfig holds orchestration settings.
type RunConfig struct {
	// ConcurrencyLimit caps concurrently running tasks per wave.
	ConcurrencyLimit int `mapstructure:"concurrency_limit"`
	// StrictUnblocking requires dependencies to succeed, not just finish,
	// before dependents run.
	StrictUnblocking bool `mapstructure:"strict_unblocking"`
	// Narrative enables the backend merge of all sections at synthesis.
	Narrative bool `mapstructure:"narrative"`
	// LogFile is the debug log path. Empty disables debug logging.
	LogFile string `mapstructure:"log_file"`
}

// MemoryConfig holds memory store settings.
type MemoryConfig struct {
	// Path is the SQLite database path. Empty uses .atelier/memory.db in
	// the working directory.
	Path string `mapstructure:"path"`
	// CacheSize bounds the embedding cache.
	CacheSize int `mapstructure:"cache_size"`
	// Threshold is the minimum similarity for retrieval hits.
	Threshold float64 `mapstructure:"threshold"`
}

// WatchConfig holds plan-watch settings.
type WatchConfig struct {
	// Dir is the directory watched for new plan files.
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, ATELIER_*)
// 2. Project config (.atelier.yaml in current directory or parent)
// 3. User config (~/.config/atelier/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ATELIER")
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("embeddings.api_key", "OPENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Embeddings.APIKey = os.ExpandEnv(cfg.Embeddings.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Embeddings.APIKey = os.ExpandEnv(cfg.Embeddings.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("embeddings.api_key", cfg.Embeddings.APIKey)
	v.Set("embeddings.base_url", cfg.Embeddings.BaseURL)
	v.Set("embeddings.model", cfg.Embeddings.Model)
	v.Set("run.concurrency_limit", cfg.Run.ConcurrencyLimit)
	v.Set("run.strict_unblocking", cfg.Run.StrictUnblocking)
	v.Set("run.narrative", cfg.Run.Narrative)
	v.Set("run.log_file", cfg.Run.LogFile)
	v.Set("memory.path", cfg.Memory.Path)
	v.Set("memory.cache_size", cfg.Memory.CacheSize)
	v.Set("memory.threshold", cfg.Memory.Threshold)
	v.Set("watch.dir", cfg.Watch.Dir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("embeddings.api_key", "")
	v.SetDefault("embeddings.base_url", "")
	v.SetDefault("embeddings.model", "")

	v.SetDefault("run.concurrency_limit", 3)
	v.SetDefault("run.strict_unblocking", false)
	v.SetDefault("run.narrative", true)
	v.SetDefault("run.log_file", "")

	v.SetDefault("memory.path", "")
	v.SetDefault("memory.cache_size", 1024)
	v.SetDefault("memory.threshold", 0.7)

	v.SetDefault("watch.dir", "")
}

// getUserConfigDir returns the XDG config directory for atelier.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "atelier")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "atelier")
	}
	return filepath.Join(home, ".config", "atelier")
}

// findProjectConfig searches for .atelier.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".atelier.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
