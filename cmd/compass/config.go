package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/compass-pm/compass/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify compass configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/compass/config.yaml
Project-specific overrides can be placed in .compass.yaml`,
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
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", orUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", orUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("anthropic.fallback_models: %s\n", orUnset(strings.Join(cfg.Anthropic.FallbackModels, ",")))
	fmt.Printf("storage.state_path: %s\n", orUnset(cfg.Storage.StatePath))
	fmt.Printf("storage.knowledge_path: %s\n", orUnset(cfg.Storage.KnowledgePath))
	fmt.Printf("rules.path: %s\n", orUnset(cfg.Rules.Path))
	fmt.Printf("rules.watch: %t\n", cfg.Rules.Watch)
	fmt.Printf("breaker.enabled: %t\n", cfg.Breaker.Enabled)
	fmt.Printf("breaker.max_failures: %d\n", cfg.Breaker.MaxFailures)
	fmt.Printf("breaker.timeout: %s\n", cfg.Breaker.Timeout)
	fmt.Printf("breaker.interval: %s\n", cfg.Breaker.Interval)
	fmt.Printf("logging.level: %s\n", cfg.Logging.Level)
	fmt.Printf("logging.format: %s\n", cfg.Logging.Format)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
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
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return orUnset(cfg.Anthropic.AWSRegion), nil
	case "anthropic.aws_profile":
		return orUnset(cfg.Anthropic.AWSProfile), nil
	case "anthropic.fallback_models":
		return orUnset(strings.Join(cfg.Anthropic.FallbackModels, ",")), nil
	case "storage.state_path":
		return orUnset(cfg.Storage.StatePath), nil
	case "storage.knowledge_path":
		return orUnset(cfg.Storage.KnowledgePath), nil
	case "rules.path":
		return orUnset(cfg.Rules.Path), nil
	case "rules.watch":
		return strconv.FormatBool(cfg.Rules.Watch), nil
	case "breaker.enabled":
		return strconv.FormatBool(cfg.Breaker.Enabled), nil
	case "breaker.max_failures":
		return strconv.FormatUint(uint64(cfg.Breaker.MaxFailures), 10), nil
	case "breaker.timeout":
		return cfg.Breaker.Timeout.String(), nil
	case "breaker.interval":
		return cfg.Breaker.Interval.String(), nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
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
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "anthropic.fallback_models":
		cfg.Anthropic.FallbackModels = nil
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.Anthropic.FallbackModels = append(cfg.Anthropic.FallbackModels, m)
			}
		}
	case "storage.state_path":
		cfg.Storage.StatePath = value
	case "storage.knowledge_path":
		cfg.Storage.KnowledgePath = value
	case "rules.path":
		cfg.Rules.Path = value
	case "rules.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Rules.Watch = b
	case "breaker.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Breaker.Enabled = b
	case "breaker.max_failures":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid count: %s", value)
		}
		cfg.Breaker.MaxFailures = uint32(n)
	case "breaker.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Breaker.Timeout = d
	case "breaker.interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Breaker.Interval = d
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
