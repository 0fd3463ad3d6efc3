package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type captureSink struct {
	mu      sync.Mutex
	samples []sample
}

func (c *captureSink) add(s sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

func (c *captureSink) Count(name string, v int64, tags map[string]string) {
	c.add(sample{"count", name, float64(v), tags})
}

func (c *captureSink) Gauge(name string, v float64, tags map[string]string) {
	c.add(sample{"gauge", name, v, tags})
}

func (c *captureSink) Timing(name string, v time.Duration, tags map[string]string) {
	c.add(sample{"timing", name, v.Seconds(), tags})
}

func TestEmitGenerateOutcome(t *testing.T) {
	sink := &captureSink{}
	EmitGenerateOutcome(sink, GenerateOutcome{Response: "failed", Duration: time.Second, Err: errors.New("x")})

	assert.Len(t, sink.samples, 2)
	assert.Equal(t, NameGenerateOutcome, sink.samples[0].name)
	assert.Equal(t, "failed", sink.samples[0].tags["outcome"])
	assert.NotEmpty(t, sink.samples[0].tags["error_class"])
	assert.Equal(t, NameGenerateDuration, sink.samples[1].name)
}

func TestEmitCompression(t *testing.T) {
	t.Run("ratio when applied", func(t *testing.T) {
		sink := &captureSink{}
		EmitCompression(sink, Compression{InputBytes: 1000, OutputBytes: 250})
		assert.Equal(t, []sample{{"gauge", NameCompressRatio, 0.25, nil}}, sink.samples)
	})

	t.Run("fallback reason", func(t *testing.T) {
		sink := &captureSink{}
		EmitCompression(sink, Compression{Fallback: "not_smaller", Duration: time.Millisecond})
		assert.Len(t, sink.samples, 2)
		assert.Equal(t, "noop", sink.samples[0].tags["result"])
		assert.Equal(t, "not_smaller", sink.samples[1].tags["reason"])
	})
}

func TestEmitHelpersAcceptNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitGenerateOutcome(nil, GenerateOutcome{})
		EmitCompression(nil, Compression{})
		EmitDeliveryAttempt(nil, DeliveryAttempt{})
		EmitContinuation(nil, Continuation{})
		EmitRetention(nil, Retention{})
		EmitActiveJobs(nil, nil)
	})
}

func TestEmitRetentionAndActiveJobs(t *testing.T) {
	sink := &captureSink{}
	EmitRetention(sink, Retention{Removed: 3, Trigger: "manual"})
	EmitActiveJobs(sink, map[string]int{"running": 2})

	assert.Equal(t, sample{"count", NameRetentionRemoved, 3, map[string]string{"trigger": "manual"}}, sink.samples[0])
	assert.Equal(t, sample{"gauge", NameJobsActive, 2, map[string]string{"status": "running"}}, sink.samples[1])
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1"}
	cp := CloneTags(src)
	cp["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
