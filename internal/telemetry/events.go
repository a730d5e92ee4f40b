package telemetry

import (
	"context"
	"time"

	"github.com/petasbytes/toolchat/internal/metrics"
)

const (
	EventTurnStarted   = "turn_started"
	EventModelCall     = "model_call"
	EventToolExec      = "tool_exec"
	EventTurnCompleted = "turn_completed"
	EventTurnFailed    = "turn_failed"
)

// Model call phases.
const (
	PhaseInitial = "initial"
	PhaseFinal   = "final"
)

func turnID(ctx context.Context) string {
	id, _ := TurnIDFromContext(ctx)
	return id
}

func errField(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// TurnStarted records local text features of the user input.
func TurnStarted(ctx context.Context, userText string) {
	if !Enabled() {
		return
	}
	f := metrics.CountFeatures(userText)
	Emit(EventTurnStarted, map[string]any{
		"turn_id":          turnID(ctx),
		"features_version": "1",
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}

// ModelCall records one model round trip.
func ModelCall(ctx context.Context, model, phase string, d time.Duration, toolCalls int, err error) {
	Emit(EventModelCall, map[string]any{
		"turn_id":     turnID(ctx),
		"model":       model,
		"phase":       phase,
		"duration_ms": d.Milliseconds(),
		"tool_calls":  toolCalls,
		"error":       errField(err),
	})
}

// ToolExec records one tool invocation. errKind is a short code, not the tool output.
func ToolExec(ctx context.Context, tool string, d time.Duration, inputSize, outputSize int, errKind string) {
	var e any
	if errKind != "" {
		e = errKind
	}
	Emit(EventToolExec, map[string]any{
		"turn_id":     turnID(ctx),
		"tool_name":   tool,
		"duration_ms": d.Milliseconds(),
		"input_size":  inputSize,
		"output_size": outputSize,
		"error":       e,
	})
}

func TurnCompleted(ctx context.Context, toolCalls int, d time.Duration) {
	Emit(EventTurnCompleted, map[string]any{
		"turn_id":     turnID(ctx),
		"tool_calls":  toolCalls,
		"duration_ms": d.Milliseconds(),
	})
}

func TurnFailed(ctx context.Context, reason string) {
	Emit(EventTurnFailed, map[string]any{
		"turn_id": turnID(ctx),
		"reason":  reason,
	})
}
