package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Providers lists the generative backends the agent factory can build.
var Providers = []string{"openai", "openrouter", "ollama", "mock"}

// Browsers lists the engines the generated support module can launch.
// The first entry is the primary engine.
var Browsers = []string{"chromium", "firefox", "webkit"}

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if p := viper.GetString("provider"); p != "" && !contains(Providers, p) {
		errors = append(errors, fmt.Sprintf("provider must be one of %s, got: %s", strings.Join(Providers, ", "), p))
	}

	if b := viper.GetString("browser"); b != "" {
		if err := ValidateBrowser(b); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if viper.IsSet("agent.timeout") {
		if timeout := durationOf("agent.timeout"); timeout <= 0 {
			errors = append(errors, fmt.Sprintf("agent.timeout must be positive, got: %v", timeout))
		}
	}

	if viper.IsSet("agent.max_retries") {
		if retries := viper.GetInt("agent.max_retries"); retries < 0 {
			errors = append(errors, fmt.Sprintf("agent.max_retries must not be negative, got: %d", retries))
		}
	}

	if viper.IsSet("runner.step_timeout_ms") {
		if ms := viper.GetInt("runner.step_timeout_ms"); ms <= 0 {
			errors = append(errors, fmt.Sprintf("runner.step_timeout_ms must be positive, got: %d", ms))
		}
	}

	if viper.IsSet("runner.command") && strings.TrimSpace(viper.GetString("runner.command")) == "" {
		errors = append(errors, "runner.command must not be empty")
	}

	if viper.IsSet("output_dir") && strings.TrimSpace(viper.GetString("output_dir")) == "" {
		errors = append(errors, "output_dir must not be empty")
	}

	if addr := viper.GetString("metrics_addr"); addr != "" {
		if err := validateAddr(addr); err != nil {
			errors = append(errors, fmt.Sprintf("metrics_addr %q is invalid: %v", addr, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}

// ValidateBrowser rejects engines the generated support module cannot launch.
func ValidateBrowser(name string) error {
	if !contains(Browsers, name) {
		return fmt.Errorf("browser must be one of %s, got: %s", strings.Join(Browsers, ", "), name)
	}
	return nil
}

func validateAddr(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("port %q is not a number", portStr)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
