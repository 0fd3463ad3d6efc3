package mupdf

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/domain/model"
)

// Exact A4 and US Letter sizes; A4 is not a whole number of points.
var (
	a4Exact   = model.PageSize{Width: 595.28, Height: 841.89}
	letter    = model.PageSize{Width: 612, Height: 792}
	a4Rotated = model.PageSize{Width: 841.89, Height: 595.28}
)

func textPDF(t *testing.T, sizes ...model.PageSize) []byte {
	t.Helper()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: sizes[0].Width, Ht: sizes[0].Height},
	})
	pdf.SetFont("Helvetica", "", 14)
	for i, size := range sizes {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
		pdf.Text(72, 72, "page")
		require.NoError(t, pdf.Error(), "page %d", i)
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestRasterizerRendersPages(t *testing.T) {
	doc, err := New().Open(textPDF(t, a4Exact, letter))
	require.NoError(t, err)
	defer func() { _ = doc.Close() }()

	require.Equal(t, 2, doc.NumPage())

	size, err := doc.PageSize(1)
	require.NoError(t, err)
	assert.InDelta(t, 612, size.Width, 0.01)
	assert.InDelta(t, 792, size.Height, 0.01)

	img, err := doc.Render(0, 72*2)
	require.NoError(t, err)
	assert.InDelta(t, 595*2, img.Bounds().Dx(), 3)
}

func TestRasterizerReportsExactPageSizes(t *testing.T) {
	sizes := []model.PageSize{a4Exact, letter, a4Rotated}
	doc, err := New().Open(textPDF(t, sizes...))
	require.NoError(t, err)
	defer func() { _ = doc.Close() }()

	require.Equal(t, len(sizes), doc.NumPage())
	for i, want := range sizes {
		got, err := doc.PageSize(i)
		require.NoError(t, err)
		assert.InDelta(t, want.Width, got.Width, 0.01, "page %d width", i)
		assert.InDelta(t, want.Height, got.Height, 0.01, "page %d height", i)
	}
}

func TestRasterizerRejectsGarbage(t *testing.T) {
	_, err := New().Open([]byte("not a pdf"))
	require.Error(t, err)
}
