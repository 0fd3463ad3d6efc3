package pdf

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// BriefRendererOptions configures the built-in renderer.
type BriefRendererOptions struct {
	Clock func() time.Time // Optional: defaults to time.Now
}

// BriefRenderer is the built-in content renderer used when no external
// rendering service is configured. It produces a cover page, an overview,
// one page per extra content section and a closing page.
type BriefRenderer struct {
	clock func() time.Time
}

var _ core.Renderer = (*BriefRenderer)(nil)

// NewBriefRenderer constructs a BriefRenderer.
func NewBriefRenderer(opts BriefRendererOptions) *BriefRenderer {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &BriefRenderer{clock: clock}
}

// Render implements core.Renderer.
func (r *BriefRenderer) Render(_ context.Context, params model.GenerateParams) (*model.Artifact, error) {
	now := r.clock()
	c := newCanvas(params.Title, now)

	drawCover(c, params)
	drawOverview(c, params, now)

	keys := make([]string, 0, len(params.Content.Extra))
	for k := range params.Content.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		drawSection(c, sectionHeading(k), params.Content.Extra[k])
	}

	drawClosing(c)
	return c.finish()
}

func sectionHeading(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func drawPageHeading(c *canvas, heading string) {
	c.fill(colorBronze)
	c.pdf.Rect(0, 0, c.width(), 8, "F")

	c.font(styleBold, 26)
	c.ink(colorSand)
	c.text(coverMargin, 110, heading)

	c.pen(colorBronze)
	c.pdf.SetLineWidth(1)
	c.pdf.Line(coverMargin, 126, c.width()-coverMargin, 126)
}

func drawOverview(c *canvas, params model.GenerateParams, now time.Time) {
	c.addPage(colorInk)
	drawPageHeading(c, "Overview")

	rows := [][2]string{
		{"Report", params.Title},
		{"Ticker", strings.ToUpper(params.Content.Ticker)},
		{"Company", params.Content.Company},
		{"Prepared for", params.Recipient},
		{"Generated", now.Format("2006-01-02 15:04:05")},
	}
	y := 170.0
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		c.font(styleBold, 12)
		c.ink(colorMuted)
		c.text(coverMargin, y, row[0])
		c.font(styleBody, 14)
		c.ink(colorWhite)
		c.text(200, y, row[1])
		y += 28
	}
}

func drawSection(c *canvas, heading, body string) {
	c.addPage(colorInk)
	drawPageHeading(c, heading)

	c.font(styleBody, 13)
	c.ink(colorMist)
	c.paragraph(coverMargin, 150, c.width()-2*coverMargin, 19, body)
}

func drawClosing(c *canvas) {
	c.addPage(colorBronze)
	c.font(styleBold, 32)
	c.ink(colorWhite)
	c.centered(c.height()/2-20, "Stay ahead of the market")

	c.font(styleBody, 16)
	c.ink(colorMist)
	c.centered(c.height()/2+20, "Powered by Periwatch")
}
