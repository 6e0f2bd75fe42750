package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSpanAttributeBuilder(t *testing.T) {
	builder := NewSpanAttributeBuilder().
		WithTool("task_create").
		WithService("task").
		WithOperation("create").
		WithTaskGUID("d300a75f-c56a-4be9-80d1-e47653028ceb").
		WithResource("task", "d300a75f-c56a-4be9-80d1-e47653028ceb").
		WithReadOnly(false)

	attrs := builder.Build()

	if len(attrs) != 7 {
		t.Errorf("expected 7 attributes, got %d", len(attrs))
	}

	// Verify attributes are present
	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrTool] != "task_create" {
		t.Errorf("expected tool 'task_create', got %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrService] != "task" {
		t.Errorf("expected service 'task', got %v", attrMap[SpanAttrService])
	}
	if attrMap[SpanAttrOperation] != "create" {
		t.Errorf("expected operation 'create', got %v", attrMap[SpanAttrOperation])
	}
	if attrMap[SpanAttrTaskGUID] != "d300a75f-c56a-4be9-80d1-e47653028ceb" {
		t.Errorf("expected task guid, got %v", attrMap[SpanAttrTaskGUID])
	}
	if attrMap[SpanAttrResourceType] != "task" {
		t.Errorf("expected resource type 'task', got %v", attrMap[SpanAttrResourceType])
	}
	if attrMap[SpanAttrResourceID] != "d300a75f-c56a-4be9-80d1-e47653028ceb" {
		t.Errorf("expected resource id, got %v", attrMap[SpanAttrResourceID])
	}
	if attrMap[SpanAttrReadOnly] != false {
		t.Errorf("expected read_only false, got %v", attrMap[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	// Empty task GUID and resource should not be added
	builder := NewSpanAttributeBuilder().
		WithTool("test_tool").
		WithTaskGUID("").
		WithResource("", "")

	attrs := builder.Build()

	// Only tool should be present
	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestStartSpan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Initialize provider to set global tracer
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	spanCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestStartToolSpan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	spanCtx, span := StartToolSpan(ctx, "task_create")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestStartFeishuAPISpan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	spanCtx, span := StartFeishuAPISpan(ctx, "task", "create")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestSetSpanError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil) // nil error should be safe
	span.End()
}

func TestSetSpanSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanSuccess(span)
	span.End()
}

func TestAddSpanEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	AddSpanEvent(span, "test-event")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	ctx := context.Background()
	traceID := GetTraceID(ctx)
	if traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	ctx := context.Background()
	spanID := GetSpanID(ctx)
	if spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}

func TestSpanContextString_NoSpan(t *testing.T) {
	ctx := context.Background()
	ctxStr := SpanContextString(ctx)
	if ctxStr != "" {
		t.Errorf("expected empty context string for context without span, got %q", ctxStr)
	}
}
