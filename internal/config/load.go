package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the environment.
const EnvPrefix = "TESTASSIST"

// Defaults shared by the CLI and the pipeline.
const (
	DefaultProvider    = "openai"
	DefaultModel       = "gpt-4o-mini"
	DefaultOutputDir   = "out"
	DefaultBrowser     = "chromium"
	DefaultRunner      = "npx"
	DefaultProjectName = "GenAI Test Assistant"
)

// Settings is a typed snapshot of the loaded configuration. Packages below
// cmd/ receive it instead of reading viper themselves.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	OutputDir string
	Browser   string
	Headless  bool

	RunnerCommand string
	StepTimeoutMs int
	ProjectName   string
	PromptsDir    string

	AgentTimeout    time.Duration
	AgentMaxRetries int

	MetricsAddr string
	Verbose     bool
	LogFile     string

	SlackEnabled    bool
	SlackChannel    string
	SlackToken      string
	SlackWebhookURL string
}

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Only the prefixed names: desktop sessions often export BROWSER as a
	// launcher path. The runner sets BROWSER and HEADLESS for the child itself.
	_ = viper.BindEnv("browser", EnvPrefix+"_BROWSER")
	_ = viper.BindEnv("headless", EnvPrefix+"_HEADLESS")
	_ = viper.BindEnv("prompts_dir", EnvPrefix+"_PROMPTS_DIR")
	_ = viper.BindEnv("notifications.slack.webhook_url", EnvPrefix+"_NOTIFICATIONS_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// SetDefaults registers every default value with viper.
func SetDefaults() {
	viper.SetDefault("provider", DefaultProvider)
	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("output_dir", DefaultOutputDir)
	viper.SetDefault("browser", DefaultBrowser)
	viper.SetDefault("headless", true)
	viper.SetDefault("runner.command", DefaultRunner)
	viper.SetDefault("runner.step_timeout_ms", 30000)
	viper.SetDefault("report.project_name", DefaultProjectName)
	viper.SetDefault("prompts_dir", "")
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("agent.timeout", "120s")
	viper.SetDefault("agent.max_retries", 3)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")

	viper.SetDefault("notifications.slack.enabled", false)
	viper.SetDefault("notifications.slack.channel", "#qa")
	viper.SetDefault("notifications.slack.webhook_url", "")
}

// Current returns the settings currently held by viper, resolving provider
// API keys from their conventional environment variables when unset.
func Current() Settings {
	s := Settings{
		Provider:        viper.GetString("provider"),
		Model:           viper.GetString("model"),
		APIKey:          viper.GetString("api_key"),
		BaseURL:         viper.GetString("base_url"),
		OutputDir:       viper.GetString("output_dir"),
		Browser:         viper.GetString("browser"),
		Headless:        viper.GetBool("headless"),
		RunnerCommand:   viper.GetString("runner.command"),
		StepTimeoutMs:   viper.GetInt("runner.step_timeout_ms"),
		ProjectName:     viper.GetString("report.project_name"),
		PromptsDir:      viper.GetString("prompts_dir"),
		AgentTimeout:    durationOf("agent.timeout"),
		AgentMaxRetries: viper.GetInt("agent.max_retries"),
		MetricsAddr:     viper.GetString("metrics_addr"),
		Verbose:         viper.GetBool("verbose"),
		LogFile:         viper.GetString("log_file"),
		SlackEnabled:    viper.GetBool("notifications.slack.enabled"),
		SlackChannel:    viper.GetString("notifications.slack.channel"),
		SlackToken:      os.Getenv("SLACK_BOT_USER_TOKEN"),
		SlackWebhookURL: viper.GetString("notifications.slack.webhook_url"),
	}

	if s.APIKey == "" {
		s.APIKey = ProviderAPIKey(s.Provider)
	}
	if s.BaseURL == "" && s.Provider == "ollama" {
		s.BaseURL = os.Getenv("OLLAMA_HOST")
	}
	return s
}

// ProviderAPIKey looks up the conventional API key variable for a provider.
func ProviderAPIKey(provider string) string {
	if key := os.Getenv("API_KEY"); key != "" {
		return key
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return ""
}

// durationOf accepts both duration strings ("90s") and plain seconds.
func durationOf(key string) time.Duration {
	switch v := viper.Get(key).(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return viper.GetDuration(key)
}
