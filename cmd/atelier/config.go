package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shayc/atelier/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify atelier configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/atelier/config.yaml
Project-specific overrides can be placed in .atelier.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", maskKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("embeddings.api_key: %s\n", maskKey(cfg.Embeddings.APIKey))
	fmt.Printf("embeddings.base_url: %s\n", cfg.Embeddings.BaseURL)
	fmt.Printf("embeddings.model: %s\n", cfg.Embeddings.Model)
	fmt.Printf("run.concurrency_limit: %d\n", cfg.Run.ConcurrencyLimit)
	fmt.Printf("run.strict_unblocking: %t\n", cfg.Run.StrictUnblocking)
	fmt.Printf("run.narrative: %t\n", cfg.Run.Narrative)
	fmt.Printf("run.log_file: %s\n", cfg.Run.LogFile)
	fmt.Printf("memory.path: %s\n", cfg.Memory.Path)
	fmt.Printf("memory.cache_size: %d\n", cfg.Memory.CacheSize)
	fmt.Printf("memory.threshold: %g\n", cfg.Memory.Threshold)
	fmt.Printf("watch.dir: %s\n", cfg.Watch.Dir)
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "****"
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return maskKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "embeddings.api_key":
		return maskKey(cfg.Embeddings.APIKey), nil
	case "embeddings.base_url":
		return cfg.Embeddings.BaseURL, nil
	case "embeddings.model":
		return cfg.Embeddings.Model, nil
	case "run.concurrency_limit":
		return strconv.Itoa(cfg.Run.ConcurrencyLimit), nil
	case "run.strict_unblocking":
		return strconv.FormatBool(cfg.Run.StrictUnblocking), nil
	case "run.narrative":
		return strconv.FormatBool(cfg.Run.Narrative), nil
	case "run.log_file":
		return cfg.Run.LogFile, nil
	case "memory.path":
		return cfg.Memory.Path, nil
	case "memory.cache_size":
		return strconv.Itoa(cfg.Memory.CacheSize), nil
	case "memory.threshold":
		return strconv.FormatFloat(cfg.Memory.Threshold, 'g', -1, 64), nil
	case "watch.dir":
		return cfg.Watch.Dir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "embeddings.api_key":
		cfg.Embeddings.APIKey = value
	case "embeddings.base_url":
		cfg.Embeddings.BaseURL = value
	case "embeddings.model":
		cfg.Embeddings.Model = value
	case "run.concurrency_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for concurrency_limit: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("concurrency_limit must be at least 1")
		}
		cfg.Run.ConcurrencyLimit = n
	case "run.strict_unblocking":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for strict_unblocking: %w", err)
		}
		cfg.Run.StrictUnblocking = b
	case "run.narrative":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for narrative: %w", err)
		}
		cfg.Run.Narrative = b
	case "run.log_file":
		cfg.Run.LogFile = value
	case "memory.path":
		cfg.Memory.Path = value
	case "memory.cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for cache_size: %w", err)
		}
		cfg.Memory.CacheSize = n
	case "memory.threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for threshold: %w", err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("threshold must be between 0 and 1")
		}
		cfg.Memory.Threshold = f
	case "watch.dir":
		cfg.Watch.Dir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
