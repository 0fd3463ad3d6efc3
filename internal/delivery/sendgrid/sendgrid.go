// Package sendgrid delivers messages through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/periwatch/brief-api/internal/delivery"
)

// DefaultBaseURL is the SendGrid API host.
const DefaultBaseURL = "https://api.sendgrid.com"

// SendPath is the v3 send endpoint, relative to the base URL.
const SendPath = "/v3/mail/send"

// ProviderName identifies this provider in logs and attempts.
const ProviderName = "sendgrid"

// Config captures the SendGrid settings.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
	Timeout   time.Duration
	Client    *http.Client
}

// Client sends messages via SendGrid. It is safe for concurrent use.
type Client struct {
	apiKey  string
	from    *mail.Email
	baseURL string
	rest    rest.Client
}

var _ delivery.Provider = (*Client)(nil)

// NewClient builds a SendGrid client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	from := strings.TrimSpace(cfg.FromEmail)
	if from == "" {
		return nil, errors.New("sendgrid from address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		from:    mail.NewEmail(strings.TrimSpace(cfg.FromName), from),
		baseURL: baseURL,
		rest:    rest.Client{HTTPClient: hc},
	}, nil
}

// Name implements delivery.Provider.
func (c *Client) Name() string { return ProviderName }

// Send implements delivery.Provider.
func (c *Client) Send(ctx context.Context, msg delivery.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return delivery.NewProviderError(ProviderName, delivery.KindInvalidAddress, errors.New("recipient is empty"))
	}

	req := sg.GetRequest(c.apiKey, SendPath, c.baseURL)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(c.buildMail(msg))

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return delivery.NewProviderError(ProviderName, delivery.ClassifyTransport(err), fmt.Errorf("sendgrid request failed: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return delivery.NewProviderError(
			ProviderName,
			delivery.ClassifyHTTPStatus(resp.StatusCode),
			fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, errorDetail(resp.Body)),
		)
	}
	return nil
}

func (c *Client) buildMail(msg delivery.Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(c.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	// SendGrid requires text/plain before text/html.
	if msg.TextBody != "" {
		m.AddContent(mail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}
	if len(m.Content) == 0 {
		m.AddContent(mail.NewContent("text/plain", msg.Subject))
	}

	if a := msg.Attachment; a != nil {
		att := mail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(a.Content)).
			SetType(a.ContentType).
			SetFilename(a.Filename).
			SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}

// errorDetail trims an error body to a log-friendly length.
func errorDetail(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 4096 {
		body = body[:4096]
	}
	if body == "" {
		return "(empty body)"
	}
	return body
}
