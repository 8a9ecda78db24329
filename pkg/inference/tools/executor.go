package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/events"
)

// Executor runs tool calls against a registry. Execution failures are
// converted into textual Result.Error values; only context cancellation is
// surfaced as an error.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. timeout bounds a single tool call; zero
// means no per-call bound beyond the request context.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// ExecuteCall executes a single tool call.
func (e *Executor) ExecuteCall(ctx context.Context, call Call, registry Registry) *Result {
	start := time.Now()

	meta := events.EventMetadata{ID: uuid.New()}
	events.PublishEventToContext(ctx, events.NewToolCallEvent(meta, events.ToolCall{
		ID:    call.ID,
		Name:  call.Name,
		Input: string(call.Arguments),
	}))

	def, err := registry.GetTool(call.Name)
	if err != nil {
		return &Result{
			ID:       call.ID,
			Error:    fmt.Sprintf("tool not found: %s", call.Name),
			Duration: time.Since(start),
		}
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	value, execErr := def.Function.Execute(callCtx, call.Arguments)
	result := &Result{
		ID:       call.ID,
		Result:   value,
		Duration: time.Since(start),
	}
	if execErr != nil {
		result.Error = execErr.Error()
		log.Debug().
			Str("tool", call.Name).
			Str("tool_call_id", call.ID).
			Err(execErr).
			Msg("tools: tool call failed")
	}

	resultText := result.Error
	if resultText == "" {
		resultText = fmt.Sprintf("%v", value)
	}
	events.PublishEventToContext(ctx, events.NewToolResultEvent(meta, events.ToolResult{
		ID:     call.ID,
		Result: resultText,
	}))

	return result
}

// ExecuteCalls executes calls sequentially, preserving order. A capability's
// tool calls execute one at a time within its run.
func (e *Executor) ExecuteCalls(ctx context.Context, calls []Call, registry Registry) ([]*Result, error) {
	results := make([]*Result, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, e.ExecuteCall(ctx, call, registry))
	}
	return results, nil
}
