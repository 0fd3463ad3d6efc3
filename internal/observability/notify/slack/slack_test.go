package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#briefs",
		Username:   "bot",
		Timeout:    time.Second,
	})
	require.NoError(t, err)

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID:      "123",
		Title:      "ACME <Q3>",
		Recipient:  "analyst@example.com",
		Stage:      "deliver",
		Error:      "all delivery providers failed",
		ErrorClass: "delivery_exhaustederror",
		Metadata:   map[string]string{"providers": "smtp,sendgrid"},
	})

	assert.Equal(t, "bot", msg["username"])
	assert.Equal(t, "#briefs", msg["channel"])

	text, ok := msg["text"].(string)
	require.True(t, ok)
	for _, want := range []string{
		"Report generation failed", "`123`", "during deliver", "ACME &lt;Q3&gt;",
		"analyst@example.com", "all delivery providers failed", "delivery_exhaustederror",
		"providers: smtp,sendgrid", "Timestamp:",
	} {
		assert.Contains(t, text, want)
	}
}

func TestFormatMessageStatusLink(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL:      "https://hooks.slack.com/services/test",
		StatusURLPrefix: "https://brief.example.com/api/task-status",
	})
	require.NoError(t, err)

	msg := client.formatMessage(notify.JobFailurePayload{JobID: "abc"})
	text, _ := msg["text"].(string)
	assert.Contains(t, text, "<https://brief.example.com/api/task-status/abc|abc>")

	client.statusURLPrefix = "not a url"
	msg = client.formatMessage(notify.JobFailurePayload{JobID: "abc"})
	text, _ = msg["text"].(string)
	assert.Contains(t, text, "`abc`")
}

func TestSendJobFailureRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendJobFailureReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid_payload"))
}
