package otel

import (
	"context"
	"testing"
)

// fixedSpanTracer 返回固定 TraceID 的追踪器
type fixedSpanTracer struct{}

func (t *fixedSpanTracer) Start(ctx context.Context, _ string, _ ...SpanOption) (context.Context, Span) {
	return ctx, &fixedSpan{}
}

func (t *fixedSpanTracer) SpanFromContext(_ context.Context) Span {
	return &fixedSpan{}
}

type fixedSpan struct{ NoopSpan }

func (s *fixedSpan) SpanContext() SpanContext {
	return SpanContext{TraceID: "0af7651916cd43dd8448eb211c80319c", SpanID: "b7ad6b7169203331"}
}

func TestSlogLogger_WithContextTraceID(t *testing.T) {
	prev := globalTracer
	globalTracer = &fixedSpanTracer{}
	defer func() { globalTracer = prev }()

	logger := NewLoggerFromConfig(LoggingConfig{IncludeTraceID: true})

	got, ok := logger.WithContext(context.Background()).(*SlogLogger)
	if !ok {
		t.Fatal("WithContext should return a *SlogLogger")
	}
	if len(got.attrs) != 4 {
		t.Fatalf("attrs = %v, want trace_id and span_id pairs", got.attrs)
	}
	if got.attrs[0] != "trace_id" || got.attrs[2] != "span_id" {
		t.Errorf("attrs = %v, want trace correlation keys", got.attrs)
	}
}

func TestSlogLogger_WithContextTraceIDDisabled(t *testing.T) {
	prev := globalTracer
	globalTracer = &fixedSpanTracer{}
	defer func() { globalTracer = prev }()

	logger := NewLoggerFromConfig(LoggingConfig{IncludeTraceID: false})

	got := logger.WithContext(context.Background())
	if got != Logger(logger) {
		t.Error("disabled trace correlation should return the logger unchanged")
	}
}
