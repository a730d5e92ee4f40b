package telemetry_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/toolchat/internal/telemetry"
)

// useDir points telemetry at a fresh temp dir for the duration of the test.
func useDir(t *testing.T, on bool) string {
	t.Helper()
	base := t.TempDir()
	telemetry.Configure(on, base)
	t.Cleanup(func() { telemetry.Configure(false, "") })
	return base
}

// readEvents returns every JSON object in baseDir/events.jsonl.
func readEvents(t *testing.T, baseDir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(baseDir, telemetry.EventsFile))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	s := bufio.NewScanner(f)
	for s.Scan() {
		txt := strings.TrimSpace(s.Text())
		if txt == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(txt), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", txt, err)
		}
		out = append(out, m)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func noEventsFile(t *testing.T, baseDir string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(baseDir, telemetry.EventsFile))
	return os.IsNotExist(err)
}
