package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/periwatch/brief-api/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL      string
	Channel         string
	Username        string
	Timeout         time.Duration
	RetryLimit      int
	Client          *http.Client
	StatusURLPrefix string // e.g. https://brief.example.com/api/task-status
}

// Client delivers job failure notifications to a Slack webhook.
type Client struct {
	webhookURL      string
	channel         string
	username        string
	retryLimit      int
	statusURLPrefix string
	client          *http.Client
}

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL:      webhookURL,
		channel:         strings.TrimSpace(cfg.Channel),
		username:        fallbackString(strings.TrimSpace(cfg.Username), "briefd"),
		retryLimit:      max(cfg.RetryLimit, 0),
		statusURLPrefix: strings.TrimSpace(cfg.StatusURLPrefix),
		client:          hc,
	}, nil
}

// SendJobFailure posts a formatted message to Slack.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) formatMessage(payload notify.JobFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	c.writeHeader(&text, payload)
	appendDetails(&text, payload)
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) writeHeader(text *strings.Builder, payload notify.JobFailurePayload) {
	text.WriteString("*Report generation failed*")
	if id := escapeSlackText(payload.JobID); id != "" {
		if link := c.statusLink(payload.JobID); link != "" {
			fmt.Fprintf(text, " <%s|%s>", link, id)
		} else {
			text.WriteString(" `" + id + "`")
		}
	}
	if payload.Stage != "" {
		text.WriteString(" during " + escapeSlackText(payload.Stage))
	}
	text.WriteByte('\n')
}

func appendDetails(text *strings.Builder, payload notify.JobFailurePayload) {
	fields := []struct {
		label string
		value string
	}{
		{"Severity", fallbackString(payload.Severity, notify.SeverityCritical)},
		{"Title", payload.Title},
		{"Recipient", payload.Recipient},
		{"Error class", payload.ErrorClass},
		{"Error", payload.Error},
	}
	for _, field := range fields {
		appendField(text, field.label, escapeSlackText(field.value))
	}
}

func (c *Client) statusLink(jobID string) string {
	if c.statusURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.statusURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), jobID)
	if err != nil {
		return ""
	}
	return link
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return errors.Join(fmt.Errorf("drain slack response body: %w", err), resp.Body.Close())
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return errors.Join(fmt.Errorf("read slack error response: %w", readErr), closeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(metadata[k])
		text.WriteByte('\n')
	}
}
