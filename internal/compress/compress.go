// Package compress implements the Compression Stage: every page is rasterized,
// re-encoded as JPEG and reassembled into a PDF with the original page sizes.
// The stage fails open and returns the input artifact on any problem.
package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
	"github.com/periwatch/brief-api/internal/observability/metrics"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// Defaults for the rasterization pass.
const (
	DefaultScale   = 1.9
	DefaultQuality = 40
)

// Fallback reasons reported in logs and metrics.
const (
	FallbackEmpty      = "empty"
	FallbackOpen       = "open"
	FallbackPages      = "page_mismatch"
	FallbackRender     = "render"
	FallbackEncode     = "encode"
	FallbackAssemble   = "assemble"
	FallbackNotSmaller = "not_smaller"
	FallbackCanceled   = "canceled"
	FallbackPanic      = "panic"
)

// Rasterizer opens encoded documents for page rendering.
type Rasterizer interface {
	Open(content []byte) (RasterDocument, error)
}

// RasterDocument is an opened document. Implementations need not be safe for
// concurrent use.
type RasterDocument interface {
	NumPage() int
	// PageSize returns the page's physical size in PDF points.
	PageSize(page int) (model.PageSize, error)
	// Render rasterizes the page at the given resolution.
	Render(page int, dpi float64) (image.Image, error)
	Close() error
}

// Options configures a Compressor.
type Options struct {
	Rasterizer Rasterizer
	Scale      float64 // Optional: defaults to DefaultScale
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// Compressor is the Compression Stage. It holds no per-call state and is safe
// for concurrent use as long as the Rasterizer is.
type Compressor struct {
	rasterizer Rasterizer
	scale      float64
	logger     *slog.Logger
	metrics    statsd.Sink
}

var _ core.Compressor = (*Compressor)(nil)

// New constructs a Compressor.
func New(opts Options) *Compressor {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{
		rasterizer: opts.Rasterizer,
		scale:      scale,
		logger:     logger.With("component", "compress"),
		metrics:    opts.Metrics,
	}
}

type fallbackError struct {
	reason string
	err    error
}

func (e *fallbackError) Error() string {
	if e.err == nil {
		return e.reason
	}
	return e.reason + ": " + e.err.Error()
}

func (e *fallbackError) Unwrap() error { return e.err }

func fallback(reason string, err error) error {
	return &fallbackError{reason: reason, err: err}
}

// Compress returns a smaller artifact with the same page count and page sizes,
// or the input unchanged.
func (c *Compressor) Compress(ctx context.Context, artifact *model.Artifact, quality int) (out *model.Artifact) {
	start := time.Now()
	out = artifact

	defer func() {
		if r := recover(); r != nil {
			out = artifact
			c.reportFallback(ctx, artifact, fallback(FallbackPanic, fmt.Errorf("%v", r)), start)
		}
	}()

	compressed, err := c.compress(ctx, artifact, clampQuality(quality))
	if err != nil {
		c.reportFallback(ctx, artifact, err, start)
		return artifact
	}

	metrics.EmitCompression(c.metrics, metrics.Compression{
		InputBytes:  artifact.Size(),
		OutputBytes: compressed.Size(),
		Duration:    time.Since(start),
	})
	c.logger.DebugContext(ctx, "artifact compressed",
		"pages", compressed.PageCount(),
		"input_bytes", artifact.Size(),
		"output_bytes", compressed.Size(),
	)
	return compressed
}

func (c *Compressor) compress(ctx context.Context, artifact *model.Artifact, quality int) (*model.Artifact, error) {
	if artifact == nil || len(artifact.Content) == 0 {
		return nil, fallback(FallbackEmpty, nil)
	}
	if c.rasterizer == nil {
		return nil, fallback(FallbackOpen, fmt.Errorf("no rasterizer configured"))
	}

	doc, err := c.rasterizer.Open(artifact.Content)
	if err != nil {
		return nil, fallback(FallbackOpen, err)
	}
	defer func() { _ = doc.Close() }()

	sizes, err := pageSizes(doc, artifact.Pages)
	if err != nil {
		return nil, err
	}

	dpi := 72 * c.scale
	pages := make([][]byte, len(sizes))
	for i := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, fallback(FallbackCanceled, err)
		}
		img, err := doc.Render(i, dpi)
		if err != nil {
			return nil, fallback(FallbackRender, fmt.Errorf("page %d: %w", i, err))
		}
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, fallback(FallbackEncode, fmt.Errorf("page %d: %w", i, err))
		}
		pages[i] = encoded
	}

	content, err := assemble(pages, sizes)
	if err != nil {
		return nil, fallback(FallbackAssemble, err)
	}
	if len(content) >= len(artifact.Content) {
		return nil, fallback(FallbackNotSmaller, nil)
	}
	return &model.Artifact{Content: content, Pages: sizes}, nil
}

// pageSizes prefers the sizes recorded on the artifact and only asks the
// document when the artifact carries none.
func pageSizes(doc RasterDocument, known []model.PageSize) ([]model.PageSize, error) {
	n := doc.NumPage()
	if n <= 0 {
		return nil, fallback(FallbackPages, fmt.Errorf("document has no pages"))
	}
	if len(known) > 0 {
		if len(known) != n {
			return nil, fallback(FallbackPages, fmt.Errorf("artifact lists %d pages, document has %d", len(known), n))
		}
		return append([]model.PageSize(nil), known...), nil
	}

	sizes := make([]model.PageSize, n)
	for i := range sizes {
		size, err := doc.PageSize(i)
		if err != nil {
			return nil, fallback(FallbackPages, fmt.Errorf("page %d bounds: %w", i, err))
		}
		sizes[i] = size
	}
	return sizes, nil
}

func (c *Compressor) reportFallback(ctx context.Context, artifact *model.Artifact, err error, start time.Time) {
	reason := FallbackPanic
	if fe, ok := err.(*fallbackError); ok {
		reason = fe.reason
	}
	metrics.EmitCompression(c.metrics, metrics.Compression{
		InputBytes: artifact.Size(),
		Fallback:   reason,
		Duration:   time.Since(start),
	})

	level := slog.LevelWarn
	if reason == FallbackNotSmaller || reason == FallbackEmpty {
		level = slog.LevelDebug
	}
	c.logger.Log(ctx, level, "compression skipped, keeping original",
		"stage", model.StageCompress,
		"reason", reason,
		"input_bytes", artifact.Size(),
		"error", err,
	)
}

func clampQuality(q int) int {
	switch {
	case q <= 0:
		return DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}

// flatten composites img over an opaque white background so transparent
// regions do not encode as black.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty page image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// assemble writes one full-bleed JPEG per page at the page's original size.
func assemble(pages [][]byte, sizes []model.PageSize) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: sizes[0].Width, Ht: sizes[0].Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	for i, data := range pages {
		size := sizes[i]
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, size.Width, size.Height, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
