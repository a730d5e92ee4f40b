package telemetry_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/petasbytes/toolchat/internal/metrics"
	"github.com/petasbytes/toolchat/internal/telemetry"
)

func TestTurnStarted_FeaturesOnly(t *testing.T) {
	t.Setenv(telemetry.ObserveEnv, "")
	base := useDir(t, true)

	ctx := telemetry.WithTurnID(context.Background(), "turn-xyz")
	user := "What is 7 plus 5?\nthanks"
	want := metrics.CountFeatures(user)

	telemetry.TurnStarted(ctx, user)

	events := readEvents(t, base)
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	m := events[0]
	if m["event"] != telemetry.EventTurnStarted || m["turn_id"] != "turn-xyz" {
		t.Fatalf("unexpected header: %#v", m)
	}
	u, ok := m["user"].(map[string]any)
	if !ok {
		t.Fatalf("user field missing or wrong type: %T", m["user"])
	}
	if u["bytes"] != float64(want.Bytes) || u["runes"] != float64(want.Runes) ||
		u["words"] != float64(want.Words) || u["lines"] != float64(want.Lines) {
		t.Fatalf("features mismatch: got %#v want %#v", u, want)
	}
	b, _ := json.Marshal(m)
	if strings.Contains(string(b), "7 plus 5") {
		t.Fatalf("raw user text leaked into event: %s", b)
	}
}

func TestTurnStarted_Disabled_NoEvent(t *testing.T) {
	t.Setenv(telemetry.ObserveEnv, "0")
	base := useDir(t, true)

	telemetry.TurnStarted(context.Background(), "hello")

	if !noEventsFile(t, base) {
		t.Fatal("expected no events file when disabled")
	}
}

func TestLifecycleEvents_Fields(t *testing.T) {
	t.Setenv(telemetry.ObserveEnv, "")
	base := useDir(t, true)
	ctx := telemetry.WithTurnID(context.Background(), "t1")

	telemetry.ModelCall(ctx, "m", telemetry.PhaseInitial, 15*time.Millisecond, 2, nil)
	telemetry.ToolExec(ctx, "add", time.Millisecond, 13, 2, "")
	telemetry.ToolExec(ctx, "divide", time.Millisecond, 13, 0, "tool_error")
	telemetry.ModelCall(ctx, "m", telemetry.PhaseFinal, time.Millisecond, 0, errors.New("boom"))
	telemetry.TurnFailed(ctx, "model_request")
	telemetry.TurnCompleted(ctx, 2, 20*time.Millisecond)

	ev := readEvents(t, base)
	if len(ev) != 6 {
		t.Fatalf("want 6 events, got %d", len(ev))
	}
	for _, e := range ev {
		if e["turn_id"] != "t1" {
			t.Fatalf("turn_id missing on %v", e["event"])
		}
	}
	if ev[0]["phase"] != telemetry.PhaseInitial || ev[0]["tool_calls"] != float64(2) || ev[0]["error"] != nil {
		t.Fatalf("model_call initial: %#v", ev[0])
	}
	if ev[1]["tool_name"] != "add" || ev[1]["input_size"] != float64(13) || ev[1]["error"] != nil {
		t.Fatalf("tool_exec ok: %#v", ev[1])
	}
	if ev[2]["error"] != "tool_error" {
		t.Fatalf("tool_exec error: %#v", ev[2])
	}
	if ev[3]["error"] != "boom" {
		t.Fatalf("model_call error: %#v", ev[3])
	}
	if ev[4]["event"] != telemetry.EventTurnFailed || ev[4]["reason"] != "model_request" {
		t.Fatalf("turn_failed: %#v", ev[4])
	}
	if ev[5]["event"] != telemetry.EventTurnCompleted || ev[5]["tool_calls"] != float64(2) {
		t.Fatalf("turn_completed: %#v", ev[5])
	}
}
