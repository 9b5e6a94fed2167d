// Package observe provides application-wide observability primitives for
// Talkover: OpenTelemetry metrics, tracing, and structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Talkover metrics.
const meterName = "github.com/fluxtone/talkover"

// Metrics holds all OpenTelemetry metric instruments for the analysis core.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// FrameLevel tracks the RMS energy distribution of processed frames.
	// Useful for picking thresholds against real traffic.
	FrameLevel metric.Float64Histogram

	// SpeechSegmentDuration tracks the length of detected utterances.
	SpeechSegmentDuration metric.Float64Histogram

	// --- Counters ---

	// FramesProcessed counts analysed frames. Use with attribute:
	//   attribute.String("channel", "inbound"|"outbound")
	FramesProcessed metric.Int64Counter

	// SpeechSegments counts completed speech segments.
	SpeechSegments metric.Int64Counter

	// BargeIns counts confirmed barge-in triggers.
	BargeIns metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live analysis sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// levelBuckets defines histogram bucket boundaries for normalized RMS levels.
var levelBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// segmentBuckets defines histogram bucket boundaries (in seconds) for
// utterance durations.
var segmentBuckets = []float64{
	0.25, 0.5, 1, 2, 4, 8, 16, 32, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.FrameLevel, err = m.Float64Histogram("talkover.frame.level",
		metric.WithDescription("RMS energy level of processed audio frames."),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechSegmentDuration, err = m.Float64Histogram("talkover.speech_segment.duration",
		metric.WithDescription("Duration of detected speech segments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(segmentBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesProcessed, err = m.Int64Counter("talkover.frames.processed",
		metric.WithDescription("Total audio frames analysed, by channel."),
	); err != nil {
		return nil, err
	}
	if met.SpeechSegments, err = m.Int64Counter("talkover.speech_segments",
		metric.WithDescription("Total completed speech segments."),
	); err != nil {
		return nil, err
	}
	if met.BargeIns, err = m.Int64Counter("talkover.barge_ins",
		metric.WithDescription("Total confirmed barge-in triggers."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("talkover.active_sessions",
		metric.WithDescription("Number of live analysis sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one analysed frame with its level for the given
// channel ("inbound" or "outbound").
func (m *Metrics) RecordFrame(ctx context.Context, channel string, level float64) {
	attrs := metric.WithAttributes(attribute.String("channel", channel))
	m.FramesProcessed.Add(ctx, 1, attrs)
	m.FrameLevel.Record(ctx, level, attrs)
}
