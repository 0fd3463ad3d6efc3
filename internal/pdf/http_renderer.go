package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/periwatch/brief-api/internal/compress"
	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// DefaultMaxArtifactBytes caps the size of a rendered document read from an
// external renderer.
const DefaultMaxArtifactBytes = 64 << 20

// HTTPRendererOptions configures the external renderer client.
type HTTPRendererOptions struct {
	Endpoint string
	// Client defaults to an http.Client without a timeout; rendering time is unbounded.
	Client *http.Client
	// Inspector, when set, reads page geometry from the returned document.
	Inspector compress.Rasterizer
	MaxBytes  int64
	Logger    *slog.Logger
}

// HTTPRenderer posts the content spec to an external rendering service and
// reads back PDF bytes.
type HTTPRenderer struct {
	endpoint  string
	client    *http.Client
	inspector compress.Rasterizer
	maxBytes  int64
	logger    *slog.Logger
}

var _ core.Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer constructs an HTTPRenderer.
func NewHTTPRenderer(opts HTTPRendererOptions) (*HTTPRenderer, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("renderer endpoint is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRenderer{
		endpoint:  endpoint,
		client:    client,
		inspector: opts.Inspector,
		maxBytes:  maxBytes,
		logger:    logger.With("component", "http_renderer"),
	}, nil
}

type renderRequest struct {
	Title     string            `json:"title"`
	Recipient string            `json:"email"`
	Ticker    string            `json:"ticker,omitempty"`
	Company   string            `json:"company,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Render implements core.Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, params model.GenerateParams) (*model.Artifact, error) {
	body, err := json.Marshal(renderRequest{
		Title:     params.Title,
		Recipient: params.Recipient,
		Ticker:    params.Content.Ticker,
		Company:   params.Content.Company,
		Extra:     params.Content.Extra,
		Metadata:  params.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", model.ContentTypePDF)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	if int64(len(content)) > r.maxBytes {
		return nil, fmt.Errorf("rendered document exceeds %d bytes", r.maxBytes)
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return nil, errors.New("renderer did not return a PDF document")
	}

	return &model.Artifact{Content: content, Pages: r.inspect(ctx, content)}, nil
}

// inspect reads page sizes from the document. Failures are logged and leave
// the geometry empty; the compression stage reads it again if needed.
func (r *HTTPRenderer) inspect(ctx context.Context, content []byte) []model.PageSize {
	if r.inspector == nil {
		return nil
	}
	doc, err := r.inspector.Open(content)
	if err != nil {
		r.logger.WarnContext(ctx, "could not inspect rendered document", "error", err)
		return nil
	}
	defer func() { _ = doc.Close() }()

	pages := make([]model.PageSize, doc.NumPage())
	for i := range pages {
		size, err := doc.PageSize(i)
		if err != nil {
			r.logger.WarnContext(ctx, "could not read page bounds", "page", i, "error", err)
			return nil
		}
		pages[i] = size
	}
	return pages
}
