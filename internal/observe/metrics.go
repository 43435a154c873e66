// Package observe provides application-wide observability primitives for
// Parla: OpenTelemetry metrics, distributed tracing, trace-aware logging and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus registry that [Handler] serves on /metrics.
// [DefaultMetrics] is a package-level instance for convenience; tests should
// use [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Parla metrics.
const meterName = "github.com/MrWong99/parla"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Sessions ---

	// SessionsStarted counts exercise sessions that left the ready state.
	// Attribute: mode.
	SessionsStarted metric.Int64Counter

	// SessionsCompleted counts sessions that reached their target and were
	// credited to the ledger. Attribute: mode.
	SessionsCompleted metric.Int64Counter

	// SessionsAbandoned counts sessions cancelled before their target.
	// Attribute: mode.
	SessionsAbandoned metric.Int64Counter

	// ActiveSessions tracks sessions currently between start and a terminal
	// state.
	ActiveSessions metric.Int64UpDownCounter

	// --- Answers ---

	// SimilarityScore records the score of every scored answer (0-100).
	SimilarityScore metric.Int64Histogram

	// InterferenceDetections counts answers flagged as mixing languages.
	// Attribute: confidence.
	InterferenceDetections metric.Int64Counter

	// CaptureOutcomes counts how each prompt's capture ended. Attribute:
	// status (result, no-speech, error, unsupported, manual, timeout).
	CaptureOutcomes metric.Int64Counter

	// --- Providers ---

	// TranscriptionDuration tracks remote speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram

	// SynthesisDuration tracks remote text-to-speech latency.
	SynthesisDuration metric.Float64Histogram

	// ProviderErrors counts provider failures. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// ToolCalls counts MCP tool invocations. Attributes: tool, status.
	ToolCalls metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds sized for remote speech
// provider round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// scoreBuckets split the 0-100 similarity range into deciles.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.SessionsStarted, err = m.Int64Counter("parla.sessions.started",
		metric.WithDescription("Exercise sessions started by mode."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("parla.sessions.completed",
		metric.WithDescription("Exercise sessions completed and credited by mode."),
	); err != nil {
		return nil, err
	}
	if met.SessionsAbandoned, err = m.Int64Counter("parla.sessions.abandoned",
		metric.WithDescription("Exercise sessions cancelled before their target by mode."),
	); err != nil {
		return nil, err
	}
	if met.InterferenceDetections, err = m.Int64Counter("parla.interference.detections",
		metric.WithDescription("Answers flagged for first-language interference by confidence."),
	); err != nil {
		return nil, err
	}
	if met.CaptureOutcomes, err = m.Int64Counter("parla.capture.outcomes",
		metric.WithDescription("How each prompt's speech capture ended, by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("parla.provider.errors",
		metric.WithDescription("Speech provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("parla.tool.calls",
		metric.WithDescription("MCP tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("parla.active_sessions",
		metric.WithDescription("Number of exercise sessions in progress."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.SimilarityScore, err = m.Int64Histogram("parla.similarity.score",
		metric.WithDescription("Similarity score of scored answers."),
		metric.WithUnit("{score}"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("parla.transcription.duration",
		metric.WithDescription("Latency of remote speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("parla.synthesis.duration",
		metric.WithDescription("Latency of remote text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("parla.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// SessionStarted records a session start.
func (m *Metrics) SessionStarted(ctx context.Context, mode string) {
	m.SessionsStarted.Add(ctx, 1, metric.WithAttributes(Attr("mode", mode)))
	m.ActiveSessions.Add(ctx, 1)
}

// SessionCompleted records a credited session.
func (m *Metrics) SessionCompleted(ctx context.Context, mode string) {
	m.SessionsCompleted.Add(ctx, 1, metric.WithAttributes(Attr("mode", mode)))
	m.ActiveSessions.Add(ctx, -1)
}

// SessionAbandoned records a session cancelled before its target.
func (m *Metrics) SessionAbandoned(ctx context.Context, mode string) {
	m.SessionsAbandoned.Add(ctx, 1, metric.WithAttributes(Attr("mode", mode)))
	m.ActiveSessions.Add(ctx, -1)
}

// RecordAnswer records the measurable parts of one finished prompt. score is
// ignored when scored is false and confidence is ignored when empty.
func (m *Metrics) RecordAnswer(ctx context.Context, captureStatus string, scored bool, score int, confidence string) {
	m.CaptureOutcomes.Add(ctx, 1, metric.WithAttributes(Attr("status", captureStatus)))
	if scored {
		m.SimilarityScore.Record(ctx, int64(score))
	}
	if confidence != "" {
		m.InterferenceDetections.Add(ctx, 1, metric.WithAttributes(Attr("confidence", confidence)))
	}
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordToolCall records an MCP tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordSpeechCall records the latency of a remote transcription or
// synthesis call. kind is "transcribe" or "synthesize"; a non-nil err also
// counts as a provider error.
func (m *Metrics) RecordSpeechCall(ctx context.Context, provider, kind string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	switch kind {
	case "transcribe":
		m.TranscriptionDuration.Record(ctx, d.Seconds(), attrs)
	case "synthesize":
		m.SynthesisDuration.Record(ctx, d.Seconds(), attrs)
	}
	if err != nil {
		m.RecordProviderError(ctx, provider, kind)
	}
}
