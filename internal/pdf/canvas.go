// Package pdf produces brief documents: the placeholder artifact returned when
// the deadline elapses, the built-in brief renderer, and a client for an
// external rendering service.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/periwatch/brief-api/internal/domain/model"
)

const (
	fontFamily = "Helvetica"
	styleBold  = "B"
	styleBody  = ""
)

type rgb struct{ r, g, b int }

func hexColor(s string) rgb {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return rgb{}
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

// Palette shared by every page.
var (
	colorInk       = hexColor("#141414")
	colorPanel     = hexColor("#2A2A2A")
	colorBronze    = hexColor("#8B6636")
	colorSand      = hexColor("#C8A882")
	colorMist      = hexColor("#E5E5E5")
	colorMuted     = hexColor("#B0B0B0")
	colorTrack     = hexColor("#404040")
	colorTimestamp = hexColor("#999999")
	colorWhite     = rgb{255, 255, 255}
	colorBlack     = rgb{0, 0, 0}
)

// canvas wraps an A4 fpdf document and records the geometry of every page added.
type canvas struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	pages []model.PageSize
}

func newCanvas(title string, now time.Time) *canvas {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: model.A4.Width, Ht: model.A4.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(now)
	pdf.SetCreator("Periwatch", true)
	c := &canvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetTitle(c.tr(title), false)
	return c
}

func (c *canvas) width() float64  { return model.A4.Width }
func (c *canvas) height() float64 { return model.A4.Height }

// addPage starts a new A4 page filled with bg.
func (c *canvas) addPage(bg rgb) {
	c.pdf.AddPage()
	c.pages = append(c.pages, model.A4)
	c.fill(bg)
	c.pdf.Rect(0, 0, c.width(), c.height(), "F")
}

func (c *canvas) fill(col rgb) { c.pdf.SetFillColor(col.r, col.g, col.b) }
func (c *canvas) ink(col rgb)  { c.pdf.SetTextColor(col.r, col.g, col.b) }
func (c *canvas) pen(col rgb)  { c.pdf.SetDrawColor(col.r, col.g, col.b) }

func (c *canvas) font(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *canvas) measure(s string) float64 {
	return c.pdf.GetStringWidth(c.tr(s))
}

// text draws s with its baseline at y.
func (c *canvas) text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *canvas) centered(y float64, s string) {
	c.text((c.width()-c.measure(s))/2, y, s)
}

// paragraph writes wrapped text inside a box of width w starting at (x, y).
func (c *canvas) paragraph(x, y, w, lineHeight float64, s string) {
	c.pdf.SetXY(x, y)
	c.pdf.MultiCell(w, lineHeight, c.tr(s), "", "L", false)
}

// fitFontSize shrinks the font one point at a time until s fits maxWidth,
// stopping at minSize.
func (c *canvas) fitFontSize(s, style string, size, minSize, maxWidth float64) float64 {
	for ; size > minSize; size-- {
		c.font(style, size)
		if c.measure(s) <= maxWidth {
			return size
		}
	}
	return minSize
}

func (c *canvas) finish() (*model.Artifact, error) {
	if err := c.pdf.Error(); err != nil {
		return nil, err
	}
	if len(c.pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &model.Artifact{Content: buf.Bytes(), Pages: c.pages}, nil
}

// truncateWords keeps whole words while the text plus an ellipsis fits within
// maxWidth. The boolean reports whether any words were dropped.
func truncateWords(words []string, measure func(string) float64, maxWidth float64) (string, bool) {
	ellipsis := measure("...")
	kept := make([]string, 0, len(words))
	used := 0.0
	for _, w := range words {
		ww := measure(w + " ")
		if used+ww+ellipsis > maxWidth {
			break
		}
		kept = append(kept, w)
		used += ww
	}
	text := strings.Join(kept, " ")
	truncated := len(kept) < len(words)
	if truncated {
		text += "..."
	}
	return text, truncated
}

// splitHalves divides text into two word runs, the second at least as long as
// the first.
func splitHalves(text string) (string, string) {
	words := strings.Fields(text)
	half := len(words) / 2
	return strings.Join(words[:half], " "), strings.Join(words[half:], " ")
}
