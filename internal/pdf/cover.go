package pdf

import (
	"strings"

	"github.com/periwatch/brief-api/internal/domain/model"
)

const (
	coverMargin        = 70.0
	coverTitleMaxWidth = 483.0
	coverTitleSize     = 40.0
	coverRecipientMax  = 326.0
)

// drawCover renders the cover page shared by the full brief and the placeholder.
func drawCover(c *canvas, params model.GenerateParams) {
	c.addPage(colorInk)

	c.fill(colorBronze)
	c.pdf.Rect(0, 0, c.width(), 8, "F")

	c.font(styleBold, 14)
	c.ink(colorSand)
	c.text(coverMargin, 120, "INTELLIGENCE BRIEF")

	if ticker := strings.TrimSpace(params.Content.Ticker); ticker != "" {
		c.font(styleBold, 28)
		c.ink(colorWhite)
		c.text(coverMargin, 200, strings.ToUpper(ticker))
	}
	if company := strings.TrimSpace(params.Content.Company); company != "" {
		c.font(styleBody, 16)
		c.ink(colorMuted)
		c.text(coverMargin, 228, company)
	}

	drawCoverTitle(c, params.Title)
	drawCoverRecipient(c, params.Recipient)
}

// drawCoverTitle writes the title in upper case, the first half in white and
// the rest in bronze, truncated with an ellipsis to fit the cover width.
func drawCoverTitle(c *canvas, title string) {
	c.font(styleBold, coverTitleSize)
	visible, _ := truncateWords(strings.Fields(title), c.measure, coverTitleMaxWidth)
	first, second := splitHalves(visible)
	first, second = strings.ToUpper(first), strings.ToUpper(second)

	y := c.height() - 158
	c.ink(colorWhite)
	c.text(coverMargin, y, first)

	x := coverMargin + c.measure(first)
	if first != "" {
		second = " " + second
	}
	c.ink(colorBronze)
	c.text(x, y, second)
}

func drawCoverRecipient(c *canvas, recipient string) {
	if recipient == "" {
		return
	}
	y := c.height() - 100

	c.font(styleBody, 11)
	c.ink(colorMuted)
	c.text(coverMargin, y, "Prepared for")

	size := c.fitFontSize(recipient, styleBody, 16, 5, coverRecipientMax)
	c.font(styleBody, size)
	c.ink(colorBronze)
	c.text(132, y, recipient)
}
