package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "slipway", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("DeployVersion", func(t *testing.T) {
		attr := DeployVersion("a3f8c2")
		assert.Equal(t, AttrDeployVersion, string(attr.Key))
		assert.Equal(t, "a3f8c2", attr.Value.AsString())
	})

	t.Run("DeployPort", func(t *testing.T) {
		attr := DeployPort(3000)
		assert.Equal(t, AttrDeployPort, string(attr.Key))
		assert.Equal(t, int64(3000), attr.Value.AsInt64())
	})

	t.Run("DeployEntrypoint", func(t *testing.T) {
		attr := DeployEntrypoint("bin/server")
		assert.Equal(t, AttrDeployEntrypoint, string(attr.Key))
		assert.Equal(t, "bin/server", attr.Value.AsString())
	})

	t.Run("DeployStatus", func(t *testing.T) {
		attr := DeployStatus("success")
		assert.Equal(t, AttrDeployStatus, string(attr.Key))
		assert.Equal(t, "success", attr.Value.AsString())
	})

	t.Run("ArtifactPath", func(t *testing.T) {
		attr := ArtifactPath("/var/lib/slipway/deployments/a3f8c2")
		assert.Equal(t, AttrArtifactPath, string(attr.Key))
		assert.Equal(t, "/var/lib/slipway/deployments/a3f8c2", attr.Value.AsString())
	})

	t.Run("ArtifactSize", func(t *testing.T) {
		attr := ArtifactSize(1048576)
		assert.Equal(t, AttrArtifactSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("ProcessPID", func(t *testing.T) {
		attr := ProcessPID(4321)
		assert.Equal(t, AttrProcessPID, string(attr.Key))
		assert.Equal(t, int64(4321), attr.Value.AsInt64())
	})

	t.Run("ProcessSignal", func(t *testing.T) {
		attr := ProcessSignal("SIGTERM")
		assert.Equal(t, AttrProcessSignal, string(attr.Key))
		assert.Equal(t, "SIGTERM", attr.Value.AsString())
	})
}

func TestStartDeploySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDeploySpan(ctx, "a3f8c2")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartDeploySpan(ctx, "b4e9d1", DeployPort(3000), DeployEntrypoint("bin/server"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartInstanceSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartInstanceSpan(ctx, "start")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartInstanceSpan(ctx, "stop", ProcessPID(4321))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartLedgerSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartLedgerSpan(ctx, "persist", DeployVersion("a3f8c2"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
