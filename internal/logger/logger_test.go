package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // Disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("ErrorLevelSuppressesLowerLevels", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("VERBOSE") // not a valid level, keeps INFO

		Info("still here")
		assert.Contains(t, buf.String(), "still here")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	Info("deployment started", KeyVersion, "v1", KeyPort, 3000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "deployment started", entry["msg"])
	assert.Equal(t, "v1", entry[KeyVersion])
	assert.Equal(t, float64(3000), entry[KeyPort])
}

func TestTextFormatAttrs(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	Info("instance stopped", KeyVersion, "v2", KeySignal, "SIGTERM")

	out := buf.String()
	assert.Contains(t, out, "instance stopped")
	assert.Contains(t, out, "version=v2")
	assert.Contains(t, out, "signal=SIGTERM")
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	lc := NewLogContext("10.0.0.5").WithOperation("deploy").WithVersion("abc123")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "materializing artifact")

	out := buf.String()
	assert.Contains(t, out, "operation=deploy")
	assert.Contains(t, out, "version=abc123")
	assert.Contains(t, out, "client_ip=10.0.0.5")
}

func TestContextFieldsAbsent(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	InfoCtx(context.Background(), "no log context")

	line := buf.String()
	assert.Contains(t, line, "no log context")
	assert.NotContains(t, line, "operation=")
}

func TestLogContextClone(t *testing.T) {
	t.Parallel()

	lc := NewLogContext("127.0.0.1")
	withOp := lc.WithOperation("recover")

	assert.Empty(t, lc.Operation, "original must not be mutated")
	assert.Equal(t, "recover", withOp.Operation)
	assert.Equal(t, lc.ClientIP, withOp.ClientIP)

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
}

func TestErrAttr(t *testing.T) {
	t.Parallel()

	assert.True(t, Err(nil).Equal(Err(nil)))

	attr := Err(assert.AnError)
	assert.Equal(t, KeyError, attr.Key)
	assert.True(t, strings.Contains(attr.Value.String(), "assert.AnError"))
}
