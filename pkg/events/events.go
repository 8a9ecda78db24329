// Package events carries chat progress events from the inference layer to
// delivery handlers. Engines publish events to sinks attached to the
// request context; the delivery layer decides what reaches the caller.
package events

import (
	"encoding/json"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventTypeStart to EventTypeFinal bracket one inference step.
	EventTypeStart             EventType = "start"
	EventTypeFinal             EventType = "final"
	EventTypePartialCompletion EventType = "partial"

	// Model requested a tool call / a tool call finished executing.
	EventTypeToolCall   EventType = "tool-call"
	EventTypeToolResult EventType = "tool-result"

	EventTypeError EventType = "error"
)

// EventMetadata correlates an event with its request and session.
type EventMetadata struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Model     string    `json:"model,omitempty"`
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`
}

func (e *EventImpl) Type() EventType { return e.Type_ }

func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }

var _ Event = &EventImpl{}

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata}}
}

// EventPartialCompletion carries one incremental output unit. Delta is the
// new text produced since the previous partial event; Completion is the
// accumulated text so far.
type EventPartialCompletion struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata}, Text: text}
}

type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{EventImpl: EventImpl{Type_: EventTypeToolCall, Metadata_: metadata}, ToolCall: toolCall}
}

type ToolResult struct {
	ID     string `json:"id"`
	Result string `json:"result"`
}

type EventToolResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolResult {
	return &EventToolResult{EventImpl: EventImpl{Type_: EventTypeToolResult, Metadata_: metadata}, ToolResult: toolResult}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata}, ErrorString: err.Error()}
}

// MarshalEvent encodes an event for transport over the router.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
