package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/data"
	"github.com/periwatch/brief-api/internal/domain/model"
	"github.com/periwatch/brief-api/internal/observability/notify"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type synthFunc func(model.GenerateParams) *model.Artifact

func (f synthFunc) Synthesize(p model.GenerateParams) *model.Artifact { return f(p) }

type compressFunc func(context.Context, *model.Artifact, int) *model.Artifact

func (f compressFunc) Compress(ctx context.Context, a *model.Artifact, q int) *model.Artifact {
	return f(ctx, a, q)
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.JobFailurePayload
}

func (n *recordingNotifier) NotifyJobFailure(_ context.Context, p notify.JobFailurePayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
}

func (n *recordingNotifier) all() []notify.JobFailurePayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.JobFailurePayload(nil), n.payloads...)
}

func fullArtifact() *model.Artifact {
	return &model.Artifact{
		Content: []byte("%PDF-1.7 full report"),
		Pages:   []model.PageSize{model.A4, model.A4, model.A4},
	}
}

func placeholderArtifact() *model.Artifact {
	return &model.Artifact{Content: []byte("%PDF-1.7 placeholder"), Pages: []model.PageSize{model.A4}}
}

func placeholderSynth() core.Synthesizer {
	return synthFunc(func(model.GenerateParams) *model.Artifact { return placeholderArtifact() })
}

// blockingRenderer returns artifact/err once release is closed.
func blockingRenderer(release <-chan struct{}, artifact *model.Artifact, err error) core.Renderer {
	return core.RendererFunc(func(context.Context, model.GenerateParams) (*model.Artifact, error) {
		<-release
		return artifact, err
	})
}

func immediateRenderer(artifact *model.Artifact, err error) core.Renderer {
	return core.RendererFunc(func(context.Context, model.GenerateParams) (*model.Artifact, error) {
		return artifact, err
	})
}

func testParams() model.GenerateParams {
	return model.GenerateParams{
		Title:     "ACME Brief",
		Recipient: "analyst@example.com",
		Content:   model.ContentSpec{Ticker: "ACME"},
	}
}

func createJob(t *testing.T, reg *data.JobRegistry) model.Job {
	t.Helper()
	j, err := reg.Create(testParams())
	require.NoError(t, err)
	return j
}

func newSupervisor(t *testing.T, reg core.JobRegistry, synth core.Synthesizer, comp core.Compressor) *DeadlineSupervisor {
	t.Helper()
	s, err := NewDeadlineSupervisor(DeadlineSupervisorOptions{
		Registry:    reg,
		Synthesizer: synth,
		Compressor:  comp,
		Quality:     40,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return s
}
