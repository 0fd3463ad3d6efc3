package pdf

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/domain/model"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func testParams() model.GenerateParams {
	return model.GenerateParams{
		Title:     "ACME Quarterly Intelligence Brief",
		Recipient: "analyst@example.com",
		Content:   model.ContentSpec{Ticker: "acme", Company: "ACME Corp"},
	}
}

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(SynthesizerOptions{Clock: func() time.Time { return fixedNow }})
}

func TestSynthesize_CoverAndProcessingPage(t *testing.T) {
	artifact := newTestSynthesizer().Synthesize(testParams())

	require.NotNil(t, artifact)
	assert.True(t, bytes.HasPrefix(artifact.Content, []byte("%PDF-")))
	assert.Equal(t, []model.PageSize{model.A4, model.A4}, artifact.Pages)
}

func TestSynthesize_HandlesAwkwardInput(t *testing.T) {
	params := model.GenerateParams{
		Title:     "Überblick - Ålesund «Q4» " + string(bytes.Repeat([]byte("verylongword "), 40)),
		Recipient: "a.very.long.recipient.address.that.will.not.fit.on.the.cover@subdomain.example.com",
	}
	artifact := newTestSynthesizer().Synthesize(params)
	require.NotNil(t, artifact)
	assert.Equal(t, 2, artifact.PageCount())
}

func TestSynthesize_FallsBackToSimplePage(t *testing.T) {
	tests := []struct {
		name string
		full buildFunc
	}{
		{"error", func(model.GenerateParams, time.Time) (*model.Artifact, error) {
			return nil, errors.New("font missing")
		}},
		{"panic", func(model.GenerateParams, time.Time) (*model.Artifact, error) {
			panic("layout blew up")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer()
			s.full = tt.full

			artifact := s.Synthesize(testParams())
			require.NotNil(t, artifact)
			assert.Equal(t, 1, artifact.PageCount())
			assert.True(t, bytes.HasPrefix(artifact.Content, []byte("%PDF-")))
		})
	}
}

func TestSynthesize_ReturnsNilWhenEverythingFails(t *testing.T) {
	s := newTestSynthesizer()
	s.full = func(model.GenerateParams, time.Time) (*model.Artifact, error) { panic("boom") }
	s.simple = func(model.GenerateParams, time.Time) (*model.Artifact, error) { return nil, errors.New("still broken") }

	var artifact *model.Artifact
	require.NotPanics(t, func() { artifact = s.Synthesize(testParams()) })
	assert.Nil(t, artifact)
}

func TestTruncateWords(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }

	text, truncated := truncateWords([]string{"short", "title"}, measure, 100)
	assert.Equal(t, "short title", text)
	assert.False(t, truncated)

	text, truncated = truncateWords([]string{"alpha", "beta", "gamma", "delta"}, measure, 15)
	assert.Equal(t, "alpha beta...", text)
	assert.True(t, truncated)
}

func TestSplitHalves(t *testing.T) {
	first, second := splitHalves("one two three")
	assert.Equal(t, "one", first)
	assert.Equal(t, "two three", second)

	first, second = splitHalves("solo")
	assert.Equal(t, "", first)
	assert.Equal(t, "solo", second)
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, rgb{0x8B, 0x66, 0x36}, hexColor("#8B6636"))
	assert.Equal(t, rgb{}, hexColor("nope"))
}
