// Package statsd provides the metrics Sink contract and a StatsD UDP client.
package statsd

import "time"

// Sink describes the minimal interface required to emit StatsD-style metrics.
// Other backends (e.g. Prometheus) implement the same interface.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Fanout forwards every metric to each non-nil sink.
type Fanout []Sink

var _ Sink = Fanout(nil)

// NewFanout drops nil sinks. It returns nil when nothing remains.
func NewFanout(sinks ...Sink) Sink {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// Count implements Sink.
func (f Fanout) Count(name string, value int64, tags map[string]string) {
	for _, s := range f {
		s.Count(name, value, tags)
	}
}

// Gauge implements Sink.
func (f Fanout) Gauge(name string, value float64, tags map[string]string) {
	for _, s := range f {
		s.Gauge(name, value, tags)
	}
}

// Timing implements Sink.
func (f Fanout) Timing(name string, value time.Duration, tags map[string]string) {
	for _, s := range f {
		s.Timing(name, value, tags)
	}
}
