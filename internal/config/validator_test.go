package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		setup     func()
		wantError bool
		errMsg    string
	}{
		{
			name: "Valid Configuration",
			setup: func() {
				viper.Set("provider", "openai")
				viper.Set("browser", "firefox")
				viper.Set("agent.timeout", "30s")
				viper.Set("runner.step_timeout_ms", 60000)
				viper.Set("metrics_addr", ":2112")
			},
			wantError: false,
		},
		{
			name: "Unknown Provider",
			setup: func() {
				viper.Set("provider", "skynet")
			},
			wantError: true,
			errMsg:    "provider must be one of",
		},
		{
			name: "Unknown Browser",
			setup: func() {
				viper.Set("browser", "netscape")
			},
			wantError: true,
			errMsg:    "browser must be one of",
		},
		{
			name: "Negative Agent Timeout (Duration)",
			setup: func() {
				viper.Set("agent.timeout", -10*time.Second)
			},
			wantError: true,
			errMsg:    "agent.timeout must be positive",
		},
		{
			name: "Negative Agent Timeout (Seconds)",
			setup: func() {
				viper.Set("agent.timeout", -10)
			},
			wantError: true,
			errMsg:    "agent.timeout must be positive",
		},
		{
			name: "Negative Retries",
			setup: func() {
				viper.Set("agent.max_retries", -1)
			},
			wantError: true,
			errMsg:    "agent.max_retries must not be negative",
		},
		{
			name: "Zero Step Timeout",
			setup: func() {
				viper.Set("runner.step_timeout_ms", 0)
			},
			wantError: true,
			errMsg:    "runner.step_timeout_ms must be positive",
		},
		{
			name: "Empty Runner Command",
			setup: func() {
				viper.Set("runner.command", "  ")
			},
			wantError: true,
			errMsg:    "runner.command must not be empty",
		},
		{
			name: "Metrics Port Out Of Range",
			setup: func() {
				viper.Set("metrics_addr", "localhost:70000")
			},
			wantError: true,
			errMsg:    "port must be between 1 and 65535",
		},
		{
			name: "Metrics Address Without Port",
			setup: func() {
				viper.Set("metrics_addr", "localhost")
			},
			wantError: true,
			errMsg:    "metrics_addr",
		},
		{
			name: "Multiple Errors Aggregated",
			setup: func() {
				viper.Set("provider", "skynet")
				viper.Set("browser", "netscape")
			},
			wantError: true,
			errMsg:    "\n  browser must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()

			err := ValidateConfig()
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	viper.Reset()
}

func TestValidateBrowser(t *testing.T) {
	for _, b := range Browsers {
		if err := ValidateBrowser(b); err != nil {
			t.Errorf("ValidateBrowser(%q) = %v", b, err)
		}
	}
	for _, b := range []string{"safari", "/usr/bin/xdg-open", "Chromium", ""} {
		if err := ValidateBrowser(b); err == nil {
			t.Errorf("ValidateBrowser(%q) = nil, want error", b)
		}
	}
}
