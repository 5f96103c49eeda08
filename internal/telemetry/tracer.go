package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for deployment operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Deployment attributes
	// ========================================================================
	AttrDeployVersion    = "deploy.version"
	AttrDeployPort       = "deploy.port"
	AttrDeployEntrypoint = "deploy.entrypoint"
	AttrDeployStatus     = "deploy.status"

	// ========================================================================
	// Artifact attributes
	// ========================================================================
	AttrArtifactPath = "artifact.path"
	AttrArtifactSize = "artifact.size"

	// ========================================================================
	// Process attributes
	// ========================================================================
	AttrProcessPID    = "process.pid"
	AttrProcessSignal = "process.signal"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// Root span for handling one deployment end to end
	SpanDeploy = "deploy.deploy"

	// Startup recovery of the last persisted deployment
	SpanRecover = "deploy.recover"

	// Artifact materialization from an uploaded archive
	SpanMaterialize = "artifact.materialize"

	// Process lifecycle spans
	SpanInstanceStart = "instance.start"
	SpanInstanceStop  = "instance.stop"

	// State ledger spans
	SpanLedgerPersist = "ledger.persist"
	SpanLedgerLoad    = "ledger.load"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// DeployVersion returns an attribute for the deployment version identifier
func DeployVersion(version string) attribute.KeyValue {
	return attribute.String(AttrDeployVersion, version)
}

// DeployPort returns an attribute for the application port
func DeployPort(port int) attribute.KeyValue {
	return attribute.Int(AttrDeployPort, port)
}

// DeployEntrypoint returns an attribute for the entrypoint path
func DeployEntrypoint(entrypoint string) attribute.KeyValue {
	return attribute.String(AttrDeployEntrypoint, entrypoint)
}

// DeployStatus returns an attribute for the deployment outcome
func DeployStatus(status string) attribute.KeyValue {
	return attribute.String(AttrDeployStatus, status)
}

// ArtifactPath returns an attribute for the materialized artifact directory
func ArtifactPath(path string) attribute.KeyValue {
	return attribute.String(AttrArtifactPath, path)
}

// ArtifactSize returns an attribute for the uploaded archive size in bytes
func ArtifactSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrArtifactSize, size)
}

// ProcessPID returns an attribute for the app instance process ID
func ProcessPID(pid int) attribute.KeyValue {
	return attribute.Int(AttrProcessPID, pid)
}

// ProcessSignal returns an attribute for the signal sent to an instance
func ProcessSignal(sig string) attribute.KeyValue {
	return attribute.String(AttrProcessSignal, sig)
}

// StartDeploySpan starts a span for a deployment operation.
// This is a convenience function that sets common attributes.
func StartDeploySpan(ctx context.Context, version string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		DeployVersion(version),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanDeploy, trace.WithAttributes(allAttrs...))
}

// StartInstanceSpan starts a span for an app instance lifecycle operation.
func StartInstanceSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "instance."+operation, trace.WithAttributes(attrs...))
}

// StartLedgerSpan starts a span for a state ledger operation.
func StartLedgerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "ledger."+operation, trace.WithAttributes(attrs...))
}
