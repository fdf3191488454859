package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testassist/internal/config"
)

func TestSlackNotifier_Notify(t *testing.T) {
	var gotChannel, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotChannel = r.FormValue("channel")
		gotText = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer server.Close()

	n := NewSlackNotifier("xoxb-test", "#qa", slack.OptionAPIURL(server.URL+"/"))
	require.NoError(t, n.Notify(context.Background(), "API PASSED: 2 passed, 0 failed"))

	assert.Equal(t, "#qa", gotChannel)
	assert.Equal(t, "API PASSED: 2 passed, 0 failed", gotText)
}

func TestSlackNotifier_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	n := NewSlackNotifier("xoxb-test", "#missing", slack.OptionAPIURL(server.URL+"/"))
	err := n.Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackNotifier_MissingChannel(t *testing.T) {
	err := NewSlackNotifier("xoxb-test", "").Notify(context.Background(), "hi")
	assert.Error(t, err)
}

func TestWebhookNotifier_Notify(t *testing.T) {
	var payload slack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewWebhookNotifier(server.URL).Notify(context.Background(), "done"))
	assert.Equal(t, "done", payload.Text)
}

func TestWebhookNotifier_Errors(t *testing.T) {
	assert.Error(t, NewWebhookNotifier("").Notify(context.Background(), "x"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	assert.Error(t, NewWebhookNotifier(server.URL).Notify(context.Background(), "x"))
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) Notify(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("b down")}
	c := &recordingNotifier{}

	err := Multi{a, b, c}.Notify(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
	assert.Equal(t, []string{"msg"}, a.messages)
	assert.Equal(t, []string{"msg"}, c.messages)
}

func TestNewFromSettings(t *testing.T) {
	assert.Nil(t, NewFromSettings(config.Settings{SlackToken: "xoxb"}))
	assert.Nil(t, NewFromSettings(config.Settings{SlackEnabled: true}))

	n := NewFromSettings(config.Settings{SlackEnabled: true, SlackToken: "xoxb", SlackChannel: "#qa"})
	assert.IsType(t, &SlackNotifier{}, n)

	n = NewFromSettings(config.Settings{SlackEnabled: true, SlackWebhookURL: "http://hook"})
	assert.IsType(t, &WebhookNotifier{}, n)

	n = NewFromSettings(config.Settings{SlackEnabled: true, SlackToken: "xoxb", SlackChannel: "#qa", SlackWebhookURL: "http://hook"})
	assert.Len(t, n, 2)
}
