package turns

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates what a Turn's payload carries.
type Kind string

const (
	KindText       Kind = "text"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
)

// Role string constants used for turns in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Standard keys used in Turn.Payload maps.
const (
	PayloadKeyText   = "text"
	PayloadKeyID     = "id"
	PayloadKeyName   = "name"
	PayloadKeyArgs   = "args"
	PayloadKeyResult = "result"
	PayloadKeyError  = "error"
	// PayloadKeyTruncated marks a tool result whose payload was cut by windowing.
	PayloadKeyTruncated = "truncated"
)

// Turn is one role-tagged message unit in a conversation transcript.
// Turns within a session are strictly ordered by creation time; role
// alternation is not enforced at this layer.
type Turn struct {
	ID        string         `json:"id,omitempty"`
	Role      string         `json:"role"`
	Kind      Kind           `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Clone returns a copy of the Turn with its own payload map, suitable for
// mutation without affecting the original. Reference-typed payload values
// remain shared.
func (t Turn) Clone() Turn {
	out := t
	if t.Payload != nil {
		cp := make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			cp[k] = v
		}
		out.Payload = cp
	}
	return out
}

// Text returns the payload text for text turns, or "" when absent.
func (t Turn) Text() string {
	s, _ := t.Payload[PayloadKeyText].(string)
	return s
}

// ToolName returns the tool name for tool_call turns, or "" when absent.
func (t Turn) ToolName() string {
	s, _ := t.Payload[PayloadKeyName].(string)
	return s
}

// ToolCallID returns the correlation id for tool_call and tool_result turns.
func (t Turn) ToolCallID() string {
	s, _ := t.Payload[PayloadKeyID].(string)
	return s
}

// ResultText renders a tool_result payload as a string. Structured results
// are JSON-encoded.
func (t Turn) ResultText() string {
	v, ok := t.Payload[PayloadKeyResult]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// NewUserTextTurn returns a Turn representing a user text message.
func NewUserTextTurn(text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Kind:      KindText,
		Payload:   map[string]any{PayloadKeyText: text},
		Timestamp: time.Now(),
	}
}

// NewAssistantTextTurn returns a Turn representing assistant text output.
func NewAssistantTextTurn(text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Kind:      KindText,
		Payload:   map[string]any{PayloadKeyText: text},
		Timestamp: time.Now(),
	}
}

// NewToolCallTurn returns a Turn requesting invocation of a tool.
// id correlates the eventual tool_result; args holds the structured input.
func NewToolCallTurn(id, name string, args any) Turn {
	return Turn{
		ID:   uuid.NewString(),
		Role: RoleAssistant,
		Kind: KindToolCall,
		Payload: map[string]any{
			PayloadKeyID:   id,
			PayloadKeyName: name,
			PayloadKeyArgs: args,
		},
		Timestamp: time.Now(),
	}
}

// NewToolResultTurn returns a Turn carrying the result of a tool execution.
// id must match the corresponding tool_call id.
func NewToolResultTurn(id string, result any) Turn {
	return Turn{
		ID:   uuid.NewString(),
		Role: RoleTool,
		Kind: KindToolResult,
		Payload: map[string]any{
			PayloadKeyID:     id,
			PayloadKeyResult: result,
		},
		Timestamp: time.Now(),
	}
}

// NewToolErrorTurn returns a tool_result Turn carrying an execution error.
func NewToolErrorTurn(id string, errText string) Turn {
	return Turn{
		ID:   uuid.NewString(),
		Role: RoleTool,
		Kind: KindToolResult,
		Payload: map[string]any{
			PayloadKeyID:    id,
			PayloadKeyError: errText,
		},
		Timestamp: time.Now(),
	}
}
