package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one provider exchange in the NDJSON trace.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer serialises entries to a writer, one JSON object per line.
type Tracer struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

func NewTracer(w io.Writer) *Tracer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Tracer{enc: enc, now: time.Now}
}

// Write records entry, stamping it when Timestamp is zero. Encode errors are
// ignored: tracing never fails a provider call.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil || t.enc == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = t.now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(entry)
}

var active atomic.Pointer[Tracer]

// SetTracer installs the process-wide tracer. nil turns tracing off.
func SetTracer(t *Tracer) { active.Store(t) }

// DisableTracing turns tracing off without closing the writer.
func DisableTracing() { active.Store(nil) }

func IsTracingEnabled() bool { return active.Load() != nil }

// Trace writes entry to the active tracer, if any.
func Trace(entry TraceEntry) { active.Load().Write(entry) }

// EnableTracing appends entries to the file at path. The returned func turns
// tracing off and closes the file.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	SetTracer(NewTracer(f))
	return func() {
		DisableTracing()
		_ = f.Close()
	}, nil
}
