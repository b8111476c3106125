package driver

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTraceWritesNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewTracer(&buf)
	tracer.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	SetTracer(tracer)
	t.Cleanup(DisableTracing)
	require.True(t, IsTracingEnabled())

	Trace(TraceEntry{Driver: "gemini", Endpoint: "generateContent", Method: "SDK", DurationMs: 12})
	Trace(TraceEntry{Driver: "openai", Endpoint: "/images/generations", StatusCode: 429, Error: "rate limited"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "gemini", first.Driver)
	require.Equal(t, int64(12), first.DurationMs)
	require.Equal(t, 2026, first.Timestamp.Year())

	var second TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.Equal(t, 429, second.StatusCode)
}

func TestTraceDisabledIsNoop(t *testing.T) {
	DisableTracing()
	require.False(t, IsTracingEnabled())
	Trace(TraceEntry{Driver: "gemini"})

	var nilTracer *Tracer
	nilTracer.Write(TraceEntry{Driver: "gemini"})
}

func TestEnableTracingAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")

	cleanup, err := EnableTracing(path)
	require.NoError(t, err)
	Trace(TraceEntry{Driver: "openai", Endpoint: "/chat/completions"})
	cleanup()
	require.False(t, IsTracingEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"endpoint":"/chat/completions"`)

	_, err = EnableTracing(filepath.Join(t.TempDir(), "missing", "trace.ndjson"))
	require.Error(t, err)
}
