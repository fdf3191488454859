package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAsk answers survey prompts by message.
func scriptedAsk(t *testing.T, answers map[string]any) func(survey.Prompt, interface{}, ...survey.AskOpt) error {
	return func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		var msg string
		switch q := p.(type) {
		case *survey.Select:
			msg = q.Message
		case *survey.Input:
			msg = q.Message
		case *survey.Password:
			msg = q.Message
		case *survey.Confirm:
			msg = q.Message
		}
		v, ok := answers[msg]
		if !ok {
			return fmt.Errorf("unexpected prompt %q", msg)
		}
		switch r := response.(type) {
		case *string:
			*r = v.(string)
		case *bool:
			*r = v.(bool)
		default:
			t.Fatalf("unsupported response type %T", response)
		}
		return nil
	}
}

func TestSetupCmd(t *testing.T) {
	orig := askOneFunc
	defer func() {
		askOneFunc = orig
		viper.Reset()
	}()

	askOneFunc = scriptedAsk(t, map[string]any{
		"Choose the generative backend:":         "openrouter",
		"Model name:":                            "anthropic/claude-3.5-sonnet",
		"API key (leave empty to skip):":         "sk-or-123",
		"Save the API key to the env file?":      true,
		"Browser for UI tests:":                  "firefox",
		"Run the browser headless?":              false,
		"Output directory for generated suites:": "suites",
		"Post run summaries to Slack?":           true,
		"Slack channel:":                         "#qa-bots",
		"Slack bot token (leave empty to skip):": "xoxb-1",
	})

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("OPENROUTER_API_KEY=old"), 0600))

	output, err := executeCommand("setup", "--file", cfg, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration saved to "+cfg)

	v := viper.New()
	v.SetConfigFile(cfg)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "openrouter", v.GetString("provider"))
	assert.Equal(t, "anthropic/claude-3.5-sonnet", v.GetString("model"))
	assert.Equal(t, "firefox", v.GetString("browser"))
	assert.False(t, v.GetBool("headless"))
	assert.Equal(t, "suites", v.GetString("output_dir"))
	assert.Equal(t, "#qa-bots", v.GetString("notifications.slack.channel"))

	data, err := os.ReadFile(env)
	require.NoError(t, err)
	assert.Equal(t, "OPENROUTER_API_KEY=old\nSLACK_BOT_USER_TOKEN=xoxb-1\n", string(data))
}

func TestSetupCmd_PromptError(t *testing.T) {
	orig := askOneFunc
	defer func() {
		askOneFunc = orig
		viper.Reset()
	}()
	askOneFunc = scriptedAsk(t, map[string]any{})

	_, err := executeCommand("setup", "--file", filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected prompt")
}

func TestAppendEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	n, err := appendEnv(path, []string{"OPENAI_API_KEY=a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = appendEnv(path, []string{"OPENAI_API_KEY=b", "SLACK_BOT_USER_TOKEN=c"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=a\nSLACK_BOT_USER_TOKEN=c\n", string(data))
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", defaultModel("openai"))
	assert.Equal(t, "llama3.1", defaultModel("ollama"))
}
