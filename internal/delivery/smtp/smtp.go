// Package smtp delivers messages through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/periwatch/brief-api/internal/delivery"
)

// ProviderName identifies this provider in logs and attempts.
const ProviderName = "smtp"

// Config captures the SMTP relay settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FromName    string
	TLSPolicy   string // mandatory | opportunistic | none
	ImplicitTLS bool
	Timeout     time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Client sends messages over SMTP. Each Send dials a fresh connection, so a
// Client is safe for concurrent use.
type Client struct {
	from     string
	fromName string
	sender   sender
}

var _ delivery.Provider = (*Client)(nil)

// NewClient builds an SMTP client from cfg.
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("smtp from address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithTimeout(timeout),
		mail.WithTLSPortPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.ImplicitTLS {
		opts = append(opts, mail.WithSSLPort(false))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	mc, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newClientWithSender(from, strings.TrimSpace(cfg.FromName), mc), nil
}

func newClientWithSender(from, fromName string, s sender) *Client {
	return &Client{from: from, fromName: fromName, sender: s}
}

// Name implements delivery.Provider.
func (c *Client) Name() string { return ProviderName }

// Send implements delivery.Provider.
func (c *Client) Send(ctx context.Context, msg delivery.Message) error {
	m, err := c.buildMessage(msg)
	if err != nil {
		return err
	}
	if err := c.sender.DialAndSendWithContext(ctx, m); err != nil {
		return delivery.NewProviderError(ProviderName, Classify(err), err)
	}
	return nil
}

func (c *Client) buildMessage(msg delivery.Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	var fromErr error
	if c.fromName != "" {
		fromErr = m.FromFormat(c.fromName, c.from)
	} else {
		fromErr = m.From(c.from)
	}
	if fromErr != nil {
		return nil, delivery.NewProviderError(ProviderName, delivery.KindAuth, fmt.Errorf("invalid sender: %w", fromErr))
	}
	if err := m.To(msg.To); err != nil {
		return nil, delivery.NewProviderError(ProviderName, delivery.KindInvalidAddress, fmt.Errorf("invalid recipient: %w", err))
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}

	if a := msg.Attachment; a != nil {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		err := m.AttachReader(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentType(mail.ContentType(ct)))
		if err != nil {
			return nil, delivery.NewProviderError(ProviderName, delivery.KindUnknown, fmt.Errorf("attach %s: %w", a.Filename, err))
		}
	}
	return m, nil
}

// Classify maps SMTP failures to delivery error kinds using reply codes and
// go-mail's structured send error reasons.
func Classify(err error) delivery.ErrorKind {
	if err == nil {
		return delivery.KindUnknown
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return classifyReplyCode(tpErr.Code)
	}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		switch sendErr.Reason {
		case mail.ErrGetSender, mail.ErrSMTPMailFrom:
			return delivery.KindAuth
		case mail.ErrGetRcpts, mail.ErrSMTPRcptTo:
			return delivery.KindInvalidAddress
		case mail.ErrConnCheck:
			return delivery.KindNetwork
		}
		if sendErr.IsTemp() {
			return delivery.KindRateLimited
		}
	}

	if kind := delivery.ClassifyTransport(err); kind != delivery.KindUnknown {
		return kind
	}
	return delivery.KindUnknown
}

func classifyReplyCode(code int) delivery.ErrorKind {
	switch code {
	case 530, 534, 535, 538:
		return delivery.KindAuth
	case 421, 450, 451, 452, 454:
		return delivery.KindRateLimited
	case 501, 550, 551, 553:
		return delivery.KindInvalidAddress
	default:
		return delivery.KindUnknown
	}
}

func tlsPolicy(v string) mail.TLSPolicy {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "notls":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}
