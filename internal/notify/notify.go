package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"testassist/internal/config"
	"testassist/internal/telemetry"
)

// Notifier delivers a one-line run summary somewhere people will see it.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// SlackNotifier posts messages to a channel with a bot token.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
}

// NewSlackNotifier creates a SlackNotifier. Extra options (e.g.
// slack.OptionAPIURL) are passed to the client.
func NewSlackNotifier(token, channel string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(token, opts...),
		channelID: channel,
	}
}

// Notify posts message to the configured channel.
func (s *SlackNotifier) Notify(ctx context.Context, message string) error {
	if s.channelID == "" {
		return fmt.Errorf("slack channel is not configured")
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channelID, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}

// WebhookNotifier posts messages to a Slack incoming webhook.
type WebhookNotifier struct {
	URL string
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url}
}

// Notify sends message to the webhook.
func (w *WebhookNotifier) Notify(ctx context.Context, message string) error {
	if w.URL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}
	if err := slack.PostWebhookContext(ctx, w.URL, &slack.WebhookMessage{Text: message}); err != nil {
		return fmt.Errorf("failed to send slack webhook: %w", err)
	}
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewFromSettings builds the notifiers enabled in s. It returns nil when
// notifications are off or nothing usable is configured.
func NewFromSettings(s config.Settings) Notifier {
	if !s.SlackEnabled {
		return nil
	}

	var out Multi
	if s.SlackToken != "" {
		out = append(out, NewSlackNotifier(s.SlackToken, s.SlackChannel))
	}
	if s.SlackWebhookURL != "" {
		out = append(out, NewWebhookNotifier(s.SlackWebhookURL))
	}

	switch len(out) {
	case 0:
		telemetry.LogWarn("Slack notifications enabled but neither SLACK_BOT_USER_TOKEN nor a webhook URL is set")
		return nil
	case 1:
		return out[0]
	}
	return out
}
