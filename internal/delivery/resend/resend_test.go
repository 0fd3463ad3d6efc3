package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/delivery"
)

// emailRequest is the send payload as the test server decodes it.
type emailRequest struct {
	From        string   `json:"from"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html"`
	Attachments []struct {
		Filename string          `json:"filename"`
		Content  json.RawMessage `json:"content"`
	} `json:"attachments"`
}

func TestSendPostsEmail(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"49a3999c"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "re_key", From: "Briefs <briefs@example.com>", BaseURL: srv.URL})
	require.NoError(t, err)

	err = client.Send(context.Background(), delivery.Message{
		To:         "analyst@example.com",
		Subject:    "s",
		HTMLBody:   "<p>h</p>",
		Attachment: &delivery.Attachment{Filename: "r.pdf", Content: []byte("pdf")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"analyst@example.com"}, got.To)
	assert.Equal(t, "Briefs <briefs@example.com>", got.From)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "r.pdf", got.Attachments[0].Filename)
	assert.NotEmpty(t, got.Attachments[0].Content)
	assert.Equal(t, "<p>h</p>", got.HTML)
}

func TestSendClassifiesStructuredErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   delivery.ErrorKind
	}{
		{"unverified domain", http.StatusForbidden, `{"name":"invalid_from_address"}`, delivery.KindAuth},
		{"missing field", http.StatusUnprocessableEntity, `{"name":"missing_required_field"}`, delivery.KindAuth},
		{"bad recipient", http.StatusUnprocessableEntity, `{"name":"validation_error"}`, delivery.KindInvalidAddress},
		{"rate limited", http.StatusTooManyRequests, `{"name":"rate_limit_exceeded"}`, delivery.KindRateLimited},
		{"unstructured", http.StatusInternalServerError, `oops`, delivery.KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewClient(Config{APIKey: "k", From: "b@example.com", BaseURL: srv.URL})
			require.NoError(t, err)

			err = client.Send(context.Background(), delivery.Message{To: "a@example.com"})
			assert.Equal(t, tt.want, delivery.KindOf(err))
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{From: "b@example.com"})
	require.Error(t, err)
	_, err = NewClient(Config{APIKey: "k"})
	require.Error(t, err)
}

func TestSendTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client, err := NewClient(Config{APIKey: "k", From: "b@example.com", BaseURL: baseURL})
	require.NoError(t, err)

	err = client.Send(context.Background(), delivery.Message{To: "a@example.com"})
	assert.Equal(t, delivery.KindNetwork, delivery.KindOf(err))
}

func TestSendRejectsEmptyRecipient(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k", From: "b@example.com"})
	require.NoError(t, err)
	err = client.Send(context.Background(), delivery.Message{})
	assert.Equal(t, delivery.KindInvalidAddress, delivery.KindOf(err))
}
