// Package telemetry appends turn lifecycle events to a local JSONL file.
// Events carry sizes, durations and reason codes, never raw prompts or payloads.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventsFile is the file name inside Dir().
const EventsFile = "events.jsonl"

var writeMu sync.Mutex

// Emit writes a single JSON line to <dir>/events.jsonl when telemetry is enabled.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	if !Enabled() {
		return
	}

	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		slog.Warn("telemetry: marshal", "event", name, "err", err)
		return
	}

	d := Dir()
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := os.MkdirAll(d, 0o755); err != nil {
		slog.Warn("telemetry: mkdir", "dir", d, "err", err)
		return
	}
	path := filepath.Join(d, EventsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("telemetry: open", "path", path, "err", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		slog.Warn("telemetry: write", "path", path, "err", err)
	}
}
