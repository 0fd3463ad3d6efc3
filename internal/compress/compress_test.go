package compress

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/domain/model"
)

type fakeRasterizer struct {
	pages   int
	openErr error
	render  func(page int, dpi float64) (image.Image, error)
	dpis    []float64
}

func (f *fakeRasterizer) Open([]byte) (RasterDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeDocument{r: f}, nil
}

type fakeDocument struct {
	r      *fakeRasterizer
	closed bool
}

func (d *fakeDocument) NumPage() int { return d.r.pages }

func (d *fakeDocument) PageSize(int) (model.PageSize, error) { return model.A4, nil }

func (d *fakeDocument) Render(page int, dpi float64) (image.Image, error) {
	d.r.dpis = append(d.r.dpis, dpi)
	if d.r.render != nil {
		return d.r.render(page, dpi)
	}
	img := image.NewRGBA(image.Rect(0, 0, 60, 85))
	for y := 0; y < 85; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 3), B: 128, A: 255})
		}
	}
	return img, nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

func largeArtifact(t *testing.T, pages ...model.PageSize) *model.Artifact {
	t.Helper()
	content := make([]byte, 512*1024)
	_, err := rand.Read(content)
	require.NoError(t, err)
	return &model.Artifact{Content: content, Pages: pages}
}

func TestCompress_PreservesPagesAndShrinks(t *testing.T) {
	letter := model.PageSize{Width: 612, Height: 792}
	in := largeArtifact(t, model.A4, letter, model.A4)
	r := &fakeRasterizer{pages: 3}
	c := New(Options{Rasterizer: r})

	out := c.Compress(context.Background(), in, 40)

	require.NotSame(t, in, out)
	assert.True(t, bytes.HasPrefix(out.Content, []byte("%PDF-")))
	assert.Less(t, out.Size(), in.Size())
	assert.Equal(t, in.Pages, out.Pages)
	assert.Equal(t, 3, out.PageCount())
	for _, dpi := range r.dpis {
		assert.InDelta(t, 136.8, dpi, 0.001)
	}
}

func TestCompress_SizeIsStableAcrossRuns(t *testing.T) {
	in := largeArtifact(t, model.A4, model.A4)
	c := New(Options{Rasterizer: &fakeRasterizer{pages: 2}})

	first := c.Compress(context.Background(), in, 40)
	second := c.Compress(context.Background(), in, 40)
	assert.InDelta(t, first.Size(), second.Size(), 64)
}

func TestCompress_FailsOpen(t *testing.T) {
	tests := []struct {
		name string
		in   func(t *testing.T) *model.Artifact
		r    *fakeRasterizer
	}{
		{
			name: "open error",
			in:   func(t *testing.T) *model.Artifact { return largeArtifact(t, model.A4) },
			r:    &fakeRasterizer{openErr: errors.New("not a pdf")},
		},
		{
			name: "page count mismatch",
			in:   func(t *testing.T) *model.Artifact { return largeArtifact(t, model.A4, model.A4) },
			r:    &fakeRasterizer{pages: 3},
		},
		{
			name: "render error",
			in:   func(t *testing.T) *model.Artifact { return largeArtifact(t, model.A4) },
			r: &fakeRasterizer{pages: 1, render: func(int, float64) (image.Image, error) {
				return nil, errors.New("render failed")
			}},
		},
		{
			name: "render panic",
			in:   func(t *testing.T) *model.Artifact { return largeArtifact(t, model.A4) },
			r: &fakeRasterizer{pages: 1, render: func(int, float64) (image.Image, error) {
				panic("mupdf exploded")
			}},
		},
		{
			name: "output not smaller",
			in: func(*testing.T) *model.Artifact {
				return &model.Artifact{Content: []byte("%PDF-1.4 tiny"), Pages: []model.PageSize{model.A4}}
			},
			r: &fakeRasterizer{pages: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in(t)
			original := append([]byte(nil), in.Content...)
			c := New(Options{Rasterizer: tt.r})

			var out *model.Artifact
			require.NotPanics(t, func() { out = c.Compress(context.Background(), in, 40) })
			assert.Same(t, in, out)
			assert.Equal(t, original, out.Content)
		})
	}
}

func TestCompress_NilAndEmpty(t *testing.T) {
	c := New(Options{Rasterizer: &fakeRasterizer{pages: 1}})
	assert.Nil(t, c.Compress(context.Background(), nil, 40))

	empty := &model.Artifact{}
	assert.Same(t, empty, c.Compress(context.Background(), empty, 40))

	noRasterizer := New(Options{})
	in := &model.Artifact{Content: []byte("x"), Pages: []model.PageSize{model.A4}}
	assert.Same(t, in, noRasterizer.Compress(context.Background(), in, 40))
}

func TestCompress_UsesDocumentSizesWhenArtifactHasNone(t *testing.T) {
	in := largeArtifact(t)
	out := New(Options{Rasterizer: &fakeRasterizer{pages: 2}}).Compress(context.Background(), in, 40)
	assert.Equal(t, []model.PageSize{model.A4, model.A4}, out.Pages)
}

func TestCompress_CanceledContextKeepsOriginal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := largeArtifact(t, model.A4)
	assert.Same(t, in, New(Options{Rasterizer: &fakeRasterizer{pages: 1}}).Compress(ctx, in, 40))
}

func TestFlattenPaintsTransparencyWhite(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(1, 0, color.RGBA{R: 255, A: 255})

	dst := flatten(src)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, dst.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(1, 0))
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, clampQuality(0))
	assert.Equal(t, 100, clampQuality(150))
	assert.Equal(t, 75, clampQuality(75))
}
