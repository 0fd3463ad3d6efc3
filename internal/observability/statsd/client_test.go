package statsd

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  brief.api  ": "brief.api",
		"..foo..":       "foo",
		".":             "",
		"":              "",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizePrefix(input), input)
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" brief/compress ": "brief_compress",
		"foo..bar":         "foo.bar",
		"a:b|c":            "a_b_c",
	}
	for input, want := range tests {
		assert.Equal(t, want, NormalizeMetricName(input), input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(
		map[string]string{"env": "prod", " service ": " briefd "},
		map[string]string{"provider": "smtp", "env": "stage", "": "dropped"},
	)
	assert.Equal(t, "|#env:stage,provider:smtp,service:briefd", got)
	assert.Empty(t, formatTags(nil, nil))
}

func TestNewClientDisabledReturnsNil(t *testing.T) {
	client, err := NewClient(Config{Enabled: true, Address: "  "})
	require.NoError(t, err)
	assert.Nil(t, client)

	// Nil clients are safe to use.
	client.Count("x", 1, nil)
	assert.NoError(t, client.Close())
}

func TestClientWritesLineProtocol(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "brief",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()

	client.Count("delivery.attempt", 1, map[string]string{"provider": "smtp"})

	buf := make([]byte, 512)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "brief.delivery.attempt:1|c|#env:test,provider:smtp", string(buf[:n]))
}

type recordingSink struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingSink) record(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *recordingSink) Count(name string, _ int64, _ map[string]string)           { r.record("c:" + name) }
func (r *recordingSink) Gauge(name string, _ float64, _ map[string]string)         { r.record("g:" + name) }
func (r *recordingSink) Timing(name string, _ time.Duration, _ map[string]string) { r.record("t:" + name) }

func TestFanout(t *testing.T) {
	assert.Nil(t, NewFanout(nil, nil))

	single := &recordingSink{}
	assert.Same(t, single, NewFanout(nil, single))

	a, b := &recordingSink{}, &recordingSink{}
	sink := NewFanout(a, nil, b)
	sink.Count("n", 1, nil)
	sink.Gauge("g", 1, nil)
	sink.Timing("t", time.Second, nil)

	want := []string{"c:n", "g:g", "t:t"}
	assert.Equal(t, want, a.names)
	assert.Equal(t, want, b.names)
	assert.True(t, strings.HasPrefix(b.names[0], "c:"))
}
