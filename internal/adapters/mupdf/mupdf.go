// Package mupdf rasterizes PDF pages with MuPDF through go-fitz. It requires
// cgo and the bundled MuPDF static libraries.
//
// MuPDF reports page bounds rounded to whole points, so exact page sizes are
// read from the page boxes with pdfcpu and checked against MuPDF's bounds.
package mupdf

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/periwatch/brief-api/internal/compress"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// boundsTolerance is how far, in points, an exact page size may be from
// MuPDF's rounded bounds and still describe the same page.
const boundsTolerance = 1.0

// Keep pdfcpu from reading or writing a configuration directory.
var disablePDFConfigFiles = sync.OnceFunc(func() { pdfmodel.ConfigPath = "disable" })

// Rasterizer opens PDF bytes with MuPDF. Each Open creates an independent
// document, so one Rasterizer may be shared across goroutines.
type Rasterizer struct{}

var _ compress.Rasterizer = Rasterizer{}

// New returns a MuPDF rasterizer.
func New() Rasterizer { return Rasterizer{} }

// Open implements compress.Rasterizer.
func (Rasterizer) Open(content []byte) (compress.RasterDocument, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &document{doc: doc, content: content}, nil
}

type document struct {
	doc     *fitz.Document
	content []byte

	boxesRead bool
	boxes     []model.PageSize
}

func (d *document) NumPage() int { return d.doc.NumPage() }

// PageSize reports the page size in points. It prefers the exact page box and
// falls back to MuPDF's rounded bounds when the box cannot be read or does not
// match the page MuPDF sees.
func (d *document) PageSize(page int) (model.PageSize, error) {
	bounds, err := d.doc.Bound(page)
	if err != nil {
		return model.PageSize{}, err
	}
	rounded := model.PageSize{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}

	boxes := d.pageBoxes()
	if page < 0 || page >= len(boxes) {
		return rounded, nil
	}
	exact := boxes[page]
	switch {
	case near(exact.Width, rounded.Width) && near(exact.Height, rounded.Height):
		return exact, nil
	case near(exact.Height, rounded.Width) && near(exact.Width, rounded.Height):
		// Rotated page: MuPDF's bounds already carry the rotation.
		return model.PageSize{Width: exact.Height, Height: exact.Width}, nil
	default:
		return rounded, nil
	}
}

// pageBoxes reads every page box once. A document pdfcpu cannot parse yields
// no boxes.
func (d *document) pageBoxes() []model.PageSize {
	if d.boxesRead {
		return d.boxes
	}
	d.boxesRead = true

	disablePDFConfigFiles()
	dims, err := api.PageDims(bytes.NewReader(d.content), pdfmodel.NewDefaultConfiguration())
	if err != nil || len(dims) != d.doc.NumPage() {
		return nil
	}
	d.boxes = make([]model.PageSize, len(dims))
	for i, dim := range dims {
		d.boxes[i] = model.PageSize{Width: dim.Width, Height: dim.Height}
	}
	return d.boxes
}

func near(a, b float64) bool { return math.Abs(a-b) <= boundsTolerance }

func (d *document) Render(page int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *document) Close() error { return d.doc.Close() }
