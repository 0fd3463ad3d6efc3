// Package resend delivers messages through the Resend email API.
package resend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	rs "github.com/resend/resend-go/v2"

	"github.com/periwatch/brief-api/internal/delivery"
)

// DefaultBaseURL is the Resend API root.
const DefaultBaseURL = "https://api.resend.com/"

// ProviderName identifies this provider in logs and attempts.
const ProviderName = "resend"

// Config captures the Resend settings.
type Config struct {
	APIKey  string
	From    string // "Name <address>" or a bare address
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client sends messages via Resend. It is safe for concurrent use.
type Client struct {
	from   string
	client *rs.Client
}

var _ delivery.Provider = (*Client)(nil)

// NewClient builds a Resend client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("resend api key is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("resend from address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	// Paths resolve relative to the base, which must end in a slash.
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("resend base url: %w", err)
	}

	client := rs.NewCustomClient(delivery.CapturingClient(cfg.Client, timeout), apiKey)
	client.BaseURL = base
	return &Client{from: from, client: client}, nil
}

// Name implements delivery.Provider.
func (c *Client) Name() string { return ProviderName }

// Send implements delivery.Provider.
func (c *Client) Send(ctx context.Context, msg delivery.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return delivery.NewProviderError(ProviderName, delivery.KindInvalidAddress, errors.New("recipient is empty"))
	}

	req := &rs.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
	}
	if a := msg.Attachment; a != nil {
		req.Attachments = []*rs.Attachment{{Filename: a.Filename, Content: a.Content}}
	}

	var capture delivery.ResponseCapture
	_, err := c.client.Emails.SendWithContext(delivery.WithResponseCapture(ctx, &capture), req)
	if err == nil {
		return nil
	}

	if capture.Status != 0 {
		return delivery.NewProviderError(
			ProviderName,
			classifyStatus(capture.Status, capture.Body),
			fmt.Errorf("resend returned status %d: %w", capture.Status, err),
		)
	}
	kind := capture.Kind()
	if kind == delivery.KindUnknown {
		kind = delivery.ClassifyTransport(err)
	}
	return delivery.NewProviderError(ProviderName, kind, fmt.Errorf("resend request failed: %w", err))
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// classifyStatus prefers the structured error name Resend returns and falls
// back to the HTTP status.
func classifyStatus(status int, body string) delivery.ErrorKind {
	var er errorResponse
	if err := json.Unmarshal([]byte(body), &er); err == nil {
		switch er.Name {
		case "missing_api_key", "invalid_api_key", "restricted_api_key",
			"invalid_from_address", "missing_required_field":
			return delivery.KindAuth
		case "rate_limit_exceeded", "daily_quota_exceeded":
			return delivery.KindRateLimited
		case "validation_error", "invalid_to_address":
			return delivery.KindInvalidAddress
		}
	}
	return delivery.ClassifyHTTPStatus(status)
}
