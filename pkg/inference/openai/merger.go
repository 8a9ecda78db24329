package openai

import (
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// toolCallMerger reassembles tool calls from streamed deltas. The API
// fragments each call across chunks, keyed by index, with name and
// argument text arriving piecewise.
type toolCallMerger struct {
	calls map[int]go_openai.ToolCall
	order []int
}

func newToolCallMerger() *toolCallMerger {
	return &toolCallMerger{calls: map[int]go_openai.ToolCall{}}
}

func (m *toolCallMerger) add(deltas []go_openai.ToolCall) {
	for _, delta := range deltas {
		if delta.Index == nil {
			log.Warn().Msg("openai: tool call delta without index, skipping")
			continue
		}
		idx := *delta.Index
		existing, ok := m.calls[idx]
		if !ok {
			m.order = append(m.order, idx)
		}
		if delta.ID != "" {
			existing.ID = delta.ID
		}
		if delta.Type != "" {
			existing.Type = delta.Type
		}
		existing.Function.Name += delta.Function.Name
		existing.Function.Arguments += delta.Function.Arguments
		m.calls[idx] = existing
	}
}

func (m *toolCallMerger) merged() []go_openai.ToolCall {
	result := make([]go_openai.ToolCall, 0, len(m.order))
	for _, idx := range m.order {
		result = append(result, m.calls[idx])
	}
	return result
}
