package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/errorsx"
	"github.com/petasbytes/toolchat/internal/metrics"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/memory"
)

// PlannedCall is a resolved tool call ready to run.
type PlannedCall struct {
	Request memory.ToolCallRequest
	Tool    *connector.Tool
}

// Executor runs planned calls as tasks on a bounded pool.
// Parallelism <= 1 runs them one at a time in emission order.
type Executor struct {
	Parallelism int
	// Timeout bounds each call; zero means only the turn context applies.
	Timeout time.Duration
	Log     *slog.Logger
}

// Run executes every call and returns the results in request order.
// The first failure cancels calls that have not finished yet.
func (e *Executor) Run(ctx context.Context, calls []PlannedCall) ([]memory.ToolCallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	n := e.Parallelism
	if n < 1 {
		n = 1
	}

	p := pool.NewWithResults[memory.ToolCallResult]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(n)

	for _, c := range calls {
		p.Go(func(ctx context.Context) (memory.ToolCallResult, error) {
			return e.runOne(ctx, c)
		})
	}
	done, err := p.Wait()
	if err != nil {
		return nil, err
	}
	return matchResults(calls, done)
}

func (e *Executor) runOne(ctx context.Context, c PlannedCall) (memory.ToolCallResult, error) {
	if err := ctx.Err(); err != nil {
		return memory.ToolCallResult{}, errorsx.Errorf(errorsx.ReasonToolExecution, "tool %q not started: %w", c.Request.Name, err)
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.Tool.Call(ctx, c.Request.Args)
	inSize := metrics.ArgsSize(c.Request.Args)
	if err != nil {
		telemetry.ToolExec(ctx, c.Request.Name, time.Since(start), inSize, 0, "tool_error")
		e.logger().Warn("tool call failed", "tool", c.Request.Name, "id", c.Request.ID, "err", err)
		return memory.ToolCallResult{}, errorsx.Wrap(err, errorsx.ReasonToolExecution)
	}
	telemetry.ToolExec(ctx, c.Request.Name, time.Since(start), inSize, len(out), "")
	e.logger().Debug("tool call done", "tool", c.Request.Name, "id", c.Request.ID, "duration", time.Since(start))

	return memory.ToolCallResult{
		ID:     c.Request.ID,
		Tool:   c.Request.Name,
		Args:   c.Request.Args,
		Result: out,
	}, nil
}

func (e *Executor) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// matchResults orders results by the calls' correlation IDs. Pool completion
// order is not emission order once Parallelism > 1.
func matchResults(calls []PlannedCall, done []memory.ToolCallResult) ([]memory.ToolCallResult, error) {
	byID := make(map[string]memory.ToolCallResult, len(done))
	for _, r := range done {
		if _, dup := byID[r.ID]; dup {
			return nil, errorsx.Errorf(errorsx.ReasonInternal, "duplicate tool result for call %q", r.ID)
		}
		byID[r.ID] = r
	}
	out := make([]memory.ToolCallResult, 0, len(calls))
	for _, c := range calls {
		r, ok := byID[c.Request.ID]
		if !ok {
			return nil, errorsx.Errorf(errorsx.ReasonInternal, "missing tool result for call %q", c.Request.ID)
		}
		out = append(out, r)
		delete(byID, c.Request.ID)
	}
	if len(byID) > 0 {
		return nil, errorsx.Errorf(errorsx.ReasonInternal, "%d tool results match no call", len(byID))
	}
	return out, nil
}
