package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"testassist/internal/config"
)

func NewSetupCmd() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively write config.yaml",
		Long:  `Runs a wizard for the backend, browser and notification settings and saves them to config.yaml. API keys can be appended to .env.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, configFile, envFile)
		},
	}

	cmd.Flags().StringVar(&configFile, "file", "config.yaml", "Config file to write")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Env file that receives secrets")
	return cmd
}

type setupAnswers struct {
	Provider     string
	Model        string
	APIKey       string
	SaveToEnv    bool
	Browser      string
	Headless     bool
	OutputDir    string
	EnableSlack  bool
	SlackChannel string
	SlackToken   string
}

func defaultModel(provider string) string {
	switch provider {
	case "openrouter":
		return "openai/gpt-4o-mini"
	case "ollama":
		return "llama3.1"
	case "mock":
		return "mock"
	}
	return config.DefaultModel
}

func askSetup() (setupAnswers, error) {
	var a setupAnswers

	if err := askOneFunc(&survey.Select{
		Message: "Choose the generative backend:",
		Options: config.Providers,
		Default: config.DefaultProvider,
	}, &a.Provider); err != nil {
		return a, err
	}

	if err := askOneFunc(&survey.Input{
		Message: "Model name:",
		Default: defaultModel(a.Provider),
	}, &a.Model); err != nil {
		return a, err
	}

	if a.Provider == "openai" || a.Provider == "openrouter" {
		if err := askOneFunc(&survey.Password{
			Message: "API key (leave empty to skip):",
		}, &a.APIKey); err != nil {
			return a, err
		}
		if a.APIKey != "" {
			if err := askOneFunc(&survey.Confirm{
				Message: "Save the API key to the env file?",
				Default: true,
			}, &a.SaveToEnv); err != nil {
				return a, err
			}
		}
	}

	if err := askOneFunc(&survey.Select{
		Message: "Browser for UI tests:",
		Options: config.Browsers,
		Default: config.DefaultBrowser,
	}, &a.Browser); err != nil {
		return a, err
	}

	if err := askOneFunc(&survey.Confirm{
		Message: "Run the browser headless?",
		Default: true,
	}, &a.Headless); err != nil {
		return a, err
	}

	if err := askOneFunc(&survey.Input{
		Message: "Output directory for generated suites:",
		Default: config.DefaultOutputDir,
	}, &a.OutputDir); err != nil {
		return a, err
	}

	if err := askOneFunc(&survey.Confirm{
		Message: "Post run summaries to Slack?",
		Default: false,
	}, &a.EnableSlack); err != nil {
		return a, err
	}
	if a.EnableSlack {
		if err := askOneFunc(&survey.Input{
			Message: "Slack channel:",
			Default: "#qa",
		}, &a.SlackChannel); err != nil {
			return a, err
		}
		if err := askOneFunc(&survey.Password{
			Message: "Slack bot token (leave empty to skip):",
		}, &a.SlackToken); err != nil {
			return a, err
		}
	}
	return a, nil
}

func runSetup(cmd *cobra.Command, configFile, envFile string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "testassist setup")
	fmt.Fprintln(out, "----------------")

	a, err := askSetup()
	if err != nil {
		return err
	}

	viper.Set("provider", a.Provider)
	viper.Set("model", a.Model)
	viper.Set("browser", a.Browser)
	viper.Set("headless", a.Headless)
	viper.Set("output_dir", a.OutputDir)
	viper.Set("notifications.slack.enabled", a.EnableSlack)
	if a.EnableSlack {
		viper.Set("notifications.slack.channel", a.SlackChannel)
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("could not write %s: %w", configFile, err)
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", configFile)

	var secrets []string
	if a.SaveToEnv && a.APIKey != "" {
		secrets = append(secrets, envKey(a.Provider)+"="+a.APIKey)
	}
	if a.SlackToken != "" {
		secrets = append(secrets, "SLACK_BOT_USER_TOKEN="+a.SlackToken)
	}
	if len(secrets) == 0 {
		return nil
	}

	written, err := appendEnv(envFile, secrets)
	if err != nil {
		return err
	}
	if written > 0 {
		fmt.Fprintf(out, "Secrets saved to %s\n", envFile)
	}
	return nil
}

func envKey(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// appendEnv appends KEY=value lines whose key is not already present.
func appendEnv(path string, lines []string) (int, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}

	var add []string
	for _, line := range lines {
		key, _, _ := strings.Cut(line, "=")
		if strings.Contains("\n"+string(existing), "\n"+key+"=") {
			continue
		}
		add = append(add, line)
	}
	if len(add) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	content := ""
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		content = "\n"
	}
	content += strings.Join(add, "\n") + "\n"
	if _, err := f.WriteString(content); err != nil {
		return 0, err
	}
	return len(add), nil
}
