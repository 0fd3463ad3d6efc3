// Package metrics holds the standard metric names and emit helpers for the
// brief generation engine. Every helper accepts a nil sink.
package metrics

import (
	"time"

	obserrors "github.com/periwatch/brief-api/internal/observability/errors"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metric names.
const (
	NameGenerateOutcome     = "brief.generate.outcome"
	NameGenerateDuration    = "brief.generate.duration"
	NameCompressRatio       = "brief.compress.ratio"
	NameCompressFallback    = "brief.compress.fallback"
	NameCompressDuration    = "brief.compress.duration"
	NameDeliveryAttempt     = "brief.delivery.attempt"
	NameDeliveryDuration    = "brief.delivery.duration"
	NameContinuationOutcome = "brief.continuation.outcome"
	NameContinuationWait    = "brief.continuation.wait"
	NameRetentionRemoved    = "brief.retention.removed"
	NameRetentionDuration   = "brief.retention.duration"
	NameJobsActive          = "brief.jobs.active"
)

// GenerateOutcome captures one synchronous Generate response.
type GenerateOutcome struct {
	Response string // completed | partial | accepted | failed
	Duration time.Duration
	Err      error
}

// EmitGenerateOutcome records the response status and how long the caller waited.
func EmitGenerateOutcome(sink statsd.Sink, in GenerateOutcome) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": in.Response}
	if in.Err != nil {
		tags["error_class"] = obserrors.Classify(in.Err)
	}
	sink.Count(NameGenerateOutcome, 1, tags)
	if in.Duration > 0 {
		sink.Timing(NameGenerateDuration, in.Duration, map[string]string{"outcome": in.Response})
	}
}

// Compression captures one Compression Stage run.
type Compression struct {
	InputBytes  int
	OutputBytes int
	Fallback    string // empty when compression was applied
	Duration    time.Duration
}

// EmitCompression records the size ratio or the fallback reason.
func EmitCompression(sink statsd.Sink, in Compression) {
	if sink == nil {
		return
	}
	if in.Duration > 0 {
		result := ResultSuccess
		if in.Fallback != "" {
			result = ResultNoop
		}
		sink.Timing(NameCompressDuration, in.Duration, map[string]string{"result": result})
	}
	if in.Fallback != "" {
		sink.Count(NameCompressFallback, 1, map[string]string{"reason": in.Fallback})
		return
	}
	if in.InputBytes > 0 {
		sink.Gauge(NameCompressRatio, float64(in.OutputBytes)/float64(in.InputBytes), nil)
	}
}

// DeliveryAttempt captures one provider invocation.
type DeliveryAttempt struct {
	Provider string
	Result   string
	Kind     string
	Duration time.Duration
}

// EmitDeliveryAttempt records a provider attempt and its classification.
func EmitDeliveryAttempt(sink statsd.Sink, in DeliveryAttempt) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"provider": in.Provider,
		"result":   in.Result,
		"kind":     in.Kind,
	}
	sink.Count(NameDeliveryAttempt, 1, tags)
	if in.Duration > 0 {
		sink.Timing(NameDeliveryDuration, in.Duration, map[string]string{"provider": in.Provider, "result": in.Result})
	}
}

// Continuation captures the end of one background continuation.
type Continuation struct {
	Status string
	Stage  string
	Wait   time.Duration
}

// EmitContinuation records the terminal status reached by a background job.
func EmitContinuation(sink statsd.Sink, in Continuation) {
	if sink == nil {
		return
	}
	sink.Count(NameContinuationOutcome, 1, map[string]string{"status": in.Status, "stage": in.Stage})
	if in.Wait > 0 {
		sink.Timing(NameContinuationWait, in.Wait, map[string]string{"status": in.Status})
	}
}

// Retention captures one sweep.
type Retention struct {
	Removed  int
	Duration time.Duration
	Trigger  string // schedule | manual
}

// EmitRetention records how many job records a sweep removed.
func EmitRetention(sink statsd.Sink, in Retention) {
	if sink == nil {
		return
	}
	tags := map[string]string{"trigger": in.Trigger}
	sink.Count(NameRetentionRemoved, int64(in.Removed), tags)
	if in.Duration > 0 {
		sink.Timing(NameRetentionDuration, in.Duration, CloneTags(tags))
	}
}

// EmitActiveJobs reports the number of stored job records per status.
func EmitActiveJobs(sink statsd.Sink, counts map[string]int) {
	if sink == nil {
		return
	}
	for status, n := range counts {
		sink.Gauge(NameJobsActive, float64(n), map[string]string{"status": status})
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
