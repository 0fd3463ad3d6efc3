package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key"})
	require.NoError(t, err)

	occurred := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	event := client.buildEvent(notify.JobFailurePayload{
		JobID:      "job-1",
		Title:      "ACME",
		Stage:      "render",
		Error:      "renderer crashed",
		OccurredAt: occurred,
		Metadata:   map[string]string{"title": "ignored", "ticker": "ACME"},
	})

	assert.Equal(t, "key", event["routing_key"])
	assert.Equal(t, "brief:job-1:render", event["dedup_key"])

	payload, ok := event["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, notify.SeverityCritical, payload["severity"])
	assert.Equal(t, "briefd", payload["source"])
	assert.Equal(t, occurred.Format(time.RFC3339), payload["timestamp"])
	assert.Contains(t, payload["summary"], `"ACME"`)

	custom, ok := payload["custom_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ACME", custom["title"])
	assert.Equal(t, "ACME", custom["ticker"])
	assert.Equal(t, "renderer crashed", custom["error"])
}

func TestSendJobFailurePostsEvent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL})
	require.NoError(t, err)

	require.NoError(t, client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1", Stage: "deliver"}))
	assert.Equal(t, "trigger", got["event_action"])
}

func TestSendJobFailureErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status":"invalid event"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL})
	require.NoError(t, err)

	err = client.SendJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid event")
}
