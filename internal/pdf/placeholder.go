package pdf

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// Placeholder notices. The processing page repeats them to the reader.
const (
	ProcessingHeading = "Processing Your Report"
	ProcessingNotice  = "The complete version will be sent to your email shortly."
	SimpleHeading     = "Processing Report..."
	SimpleNotice      = "Complete version will be sent via email."
)

type buildFunc func(params model.GenerateParams, now time.Time) (*model.Artifact, error)

// SynthesizerOptions configures a Synthesizer.
type SynthesizerOptions struct {
	Clock  func() time.Time // Optional: defaults to time.Now
	Logger *slog.Logger
}

// Synthesizer builds the placeholder artifact returned when the deadline
// elapses first. It tries a two page placeholder (cover plus a processing
// notice), then a single plain page, and returns nil only when both fail.
type Synthesizer struct {
	clock  func() time.Time
	logger *slog.Logger
	full   buildFunc
	simple buildFunc
}

var _ core.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		clock:  clock,
		logger: logger.With("component", "placeholder"),
		full:   buildPlaceholder,
		simple: buildSimplePlaceholder,
	}
}

// Synthesize never panics. A nil result means nothing renderable could be built.
func (s *Synthesizer) Synthesize(params model.GenerateParams) *model.Artifact {
	now := s.clock()

	artifact, err := safeBuild(s.full, params, now)
	if err == nil {
		return artifact
	}
	s.logger.Warn("placeholder generation failed, using simple page",
		"title", params.Title,
		"error", err,
	)

	artifact, err = safeBuild(s.simple, params, now)
	if err == nil {
		return artifact
	}
	s.logger.Error("simple placeholder generation failed",
		"title", params.Title,
		"error", err,
	)
	return nil
}

func safeBuild(build buildFunc, params model.GenerateParams, now time.Time) (artifact *model.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact, err = nil, fmt.Errorf("placeholder panic: %v", r)
		}
	}()
	if build == nil {
		return nil, fmt.Errorf("no builder")
	}
	return build(params, now)
}

func buildPlaceholder(params model.GenerateParams, now time.Time) (*model.Artifact, error) {
	c := newCanvas(params.Title, now)
	drawCover(c, params)
	drawProcessingPage(c, params.Recipient, now)
	return c.finish()
}

func drawProcessingPage(c *canvas, recipient string, now time.Time) {
	c.addPage(colorInk)
	w, h := c.width(), c.height()
	mid := h / 2

	c.font(styleBold, 36)
	c.ink(colorSand)
	c.centered(mid-120, ProcessingHeading)

	c.fill(colorSand)
	const dotSpacing = 15.0
	start := (w - 2*dotSpacing) / 2
	for i := 0; i < 3; i++ {
		c.pdf.Circle(start+float64(i)*dotSpacing, mid-80, 4, "F")
	}

	c.font(styleBody, 18)
	c.ink(colorMist)
	c.centered(mid-30, "Please wait while we generate your complete report")

	const boxW, boxH = 450.0, 60.0
	c.fill(colorPanel)
	c.pen(colorSand)
	c.pdf.SetLineWidth(2)
	c.pdf.Rect((w-boxW)/2, mid-20, boxW, boxH, "FD")

	c.font(styleBody, 14)
	c.ink(colorWhite)
	c.centered(mid+15, ProcessingNotice)

	if recipient != "" {
		c.font(styleBold, 16)
		c.ink(colorSand)
		c.centered(mid+80, recipient)
	}

	const barW, barH = 350.0, 10.0
	barX, barY := (w-barW)/2, mid+110
	c.fill(colorTrack)
	c.pdf.Rect(barX, barY, barW, barH, "F")
	c.fill(colorSand)
	c.pdf.Rect(barX, barY, barW*0.3, barH, "F")

	c.font(styleBody, 12)
	c.ink(hexColor("#CCCCCC"))
	c.centered(barY+barH+25, "Generating complete analysis...")

	c.font(styleBody, 11)
	c.ink(colorMuted)
	c.centered(mid+170, "This partial PDF contains the cover page. The complete analysis is being prepared.")

	c.pen(colorBronze)
	c.pdf.SetLineWidth(1)
	c.pdf.Line(80, h-100, w-80, h-100)

	c.font(styleBody, 12)
	c.ink(colorSand)
	c.centered(h-60, "Powered by Periwatch")

	c.font(styleBody, 10)
	c.ink(colorTimestamp)
	c.centered(h-40, "Generated: "+now.Format("2006-01-02 15:04:05"))
}

// buildSimplePlaceholder is the last resort: one white page of plain text.
func buildSimplePlaceholder(params model.GenerateParams, now time.Time) (*model.Artifact, error) {
	c := newCanvas(params.Title, now)
	c.addPage(colorWhite)
	h := c.height()

	c.ink(colorBlack)
	c.font(styleBold, 24)
	c.text(100, h-600, SimpleHeading)

	c.font(styleBody, 14)
	c.text(100, h-550, "Title: "+params.Title)
	c.text(100, h-530, "Email: "+params.Recipient)
	c.text(100, h-500, SimpleNotice)
	return c.finish()
}
