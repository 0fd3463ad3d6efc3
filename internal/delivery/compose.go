package delivery

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Built once; goldmark.Markdown is safe to share across goroutines.
var (
	markdownOnce     sync.Once
	markdownRenderer goldmark.Markdown
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownRenderer
}

var reportBodyTemplate = template.Must(template.New("report").Parse(`Hello,

Your requested report **"{{.Title}}"** has been generated successfully.
Please find the complete PDF report attached to this email.

## Report Details

- Title: {{.Title}}
- Generated: {{.Generated}}
- File size: {{.Size}} bytes
{{- if .Pages}}
- Pages: {{.Pages}}
{{- end}}

Best regards,
{{.Signature}}

---

*This email was sent automatically by {{.Sender}}. If you have any questions, please contact support.*
`))

// ReportEmail describes the content of a finished-report email.
type ReportEmail struct {
	To          string
	Title       string
	Filename    string
	Content     []byte
	Pages       int
	GeneratedAt time.Time
	Signature   string // Optional: defaults to "Periwatch Intelligence Team"
	Sender      string // Optional: defaults to "Periwatch PDF Generator"
}

// Subject returns the email subject for a finished report.
func Subject(title string) string {
	return fmt.Sprintf("Your %s Report is Ready", strings.TrimSpace(title))
}

// ComposeReport renders a finished-report email with the artifact attached.
// The markdown source is used as the plain text part and its HTML rendering as
// the HTML part.
func ComposeReport(in ReportEmail) (Message, error) {
	signature := in.Signature
	if signature == "" {
		signature = "Periwatch Intelligence Team"
	}
	sender := in.Sender
	if sender == "" {
		sender = "Periwatch PDF Generator"
	}
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	fields := map[string]any{
		"Title":     in.Title,
		"Generated": generated.Format("2006-01-02 15:04:05"),
		"Size":      len(in.Content),
		"Pages":     in.Pages,
		"Signature": signature,
		"Sender":    sender,
	}
	var text bytes.Buffer
	if err := reportBodyTemplate.Execute(&text, fields); err != nil {
		return Message{}, fmt.Errorf("render email body: %w", err)
	}

	// The title is caller input; it must reach the HTML part as literal text.
	fields["Title"] = escapeMarkdown(in.Title)
	var source bytes.Buffer
	if err := reportBodyTemplate.Execute(&source, fields); err != nil {
		return Message{}, fmt.Errorf("render email body: %w", err)
	}
	var html bytes.Buffer
	if err := getMarkdown().Convert(source.Bytes(), &html); err != nil {
		return Message{}, fmt.Errorf("convert email body to html: %w", err)
	}

	filename := in.Filename
	if filename == "" {
		filename = in.Title + ".pdf"
	}

	return Message{
		To:       in.To,
		Subject:  Subject(in.Title),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Attachment: &Attachment{
			Filename:    filename,
			ContentType: "application/pdf",
			Content:     in.Content,
		},
	}, nil
}

// escapeMarkdown backslash-escapes every ASCII punctuation character and folds
// line breaks, so goldmark renders s as literal inline text.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n':
			b.WriteByte(' ')
		case r < 0x80 && (unicode.IsPunct(r) || unicode.IsSymbol(r)):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
