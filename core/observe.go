package core

import "context"

// Logger is the structured logging interface used across the module.
// It is satisfied by *slog.Logger; adapters for logrus, zap and zerolog
// live in the root package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Metrics is the metrics sink used by the verifier and the key resolver.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

// NopMetrics records nothing.
type NopMetrics struct{}

func (NopMetrics) IncCounter(string, map[string]string)                  {}
func (NopMetrics) ObserveHistogram(string, float64, map[string]string) {}

// Metric names.
const (
	MetricVerifications  = "verifytoken_verifications_total"
	MetricVerifyDuration = "verifytoken_verify_duration_seconds"
	MetricJWKSFetches    = "verifytoken_jwks_fetches_total"
)

// Tracer starts spans around verification and key fetches.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is the subset of a tracing span the module uses.
type Span interface {
	SetAttribute(key string, value string)
	RecordError(err error)
	End()
}

// NopTracer starts spans that do nothing.
type NopTracer struct{}

func (NopTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) SetAttribute(string, string) {}
func (nopSpan) RecordError(error)           {}
func (nopSpan) End()                        {}
