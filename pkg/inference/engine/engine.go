// Package engine defines the contract the orchestration layer requires
// from an underlying model call: instructions, a bounded transcript and a
// tool set in; assistant text and/or tool invocation requests out.
package engine

import (
	"context"

	"github.com/applyflow/applyflow/pkg/inference/tools"
	"github.com/applyflow/applyflow/pkg/turns"
)

// ToolChoice controls whether the model may, must, or must not call tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// Request is one model call.
type Request struct {
	// Instructions is the system-level directive for this run.
	Instructions string
	// Turns is the bounded transcript shown to the model, oldest first.
	Turns []turns.Turn
	// Tools are the invokable operations offered to the model.
	Tools []tools.Definition
	// ToolChoice defaults to ToolChoiceAuto when empty.
	ToolChoice ToolChoice
	// SessionID is carried into event metadata for correlation.
	SessionID string
}

// Response carries the new turns the model produced: zero or more
// tool_call turns and/or an assistant text turn.
type Response struct {
	Turns []turns.Turn
	Model string
}

// Engine executes one model call. Implementations publish progress events
// (start, partial completions, tool calls, final) to the EventSinks
// attached to ctx; callers that do not care about streaming simply attach
// no sinks.
type Engine interface {
	RunInference(ctx context.Context, req *Request) (*Response, error)
}
