package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so deployments can be
// correlated in log aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Deployment identity
	KeyVersion    = "version"    // Deployment version identifier (upload hash)
	KeyPort       = "port"       // Port the application instance serves on
	KeyEntrypoint = "entrypoint" // Entrypoint path relative to the artifact root
	KeyPath       = "path"       // Filesystem path (artifact dir, ledger file, ...)
	KeySize       = "size"       // Byte size (archive, artifact)

	// Process lifecycle
	KeyPID    = "pid"    // Child process ID of the running instance
	KeySignal = "signal" // Signal delivered to the instance during stop

	// Client identification
	KeyClientIP  = "client_ip"  // Client IP address
	KeyRequestID = "request_id" // HTTP request ID from the control plane

	// Operation metadata
	KeyOperation  = "operation"   // Operation name: deploy, recover, stop, status
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// Field constructors for type safety.

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Version returns a slog.Attr for a deployment version
func Version(v string) slog.Attr {
	return slog.String(KeyVersion, v)
}

// Port returns a slog.Attr for an instance port
func Port(p int) slog.Attr {
	return slog.Int(KeyPort, p)
}

// Entrypoint returns a slog.Attr for an artifact entrypoint
func Entrypoint(e string) slog.Attr {
	return slog.String(KeyEntrypoint, e)
}

// Path returns a slog.Attr for a filesystem path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Size returns a slog.Attr for a byte size
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// PID returns a slog.Attr for a child process ID
func PID(pid int) slog.Attr {
	return slog.Int(KeyPID, pid)
}

// Signal returns a slog.Attr for a delivered signal
func Signal(sig string) slog.Attr {
	return slog.String(KeySignal, sig)
}

// ClientIP returns a slog.Attr for a client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// RequestIDStr returns a slog.Attr for an HTTP request ID
func RequestIDStr(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Operation returns a slog.Attr for an operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
