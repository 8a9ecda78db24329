// Package openai implements the inference engine contract on top of the
// OpenAI chat completion API. Requests always stream; partial completions
// are published as events so the delivery layer can forward them.
package openai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/applyflow/applyflow/pkg/events"
	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/turns"
)

// Settings configure the engine; explicit construction, no ambient
// singleton.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Engine struct {
	client *go_openai.Client
	model  string
}

var _ engine.Engine = (*Engine)(nil)

func NewEngine(settings Settings) (*Engine, error) {
	if settings.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if settings.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	cfg := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}
	return &Engine{
		client: go_openai.NewClientWithConfig(cfg),
		model:  settings.Model,
	}, nil
}

// RunInference processes one model call, streaming the completion and
// publishing progress events to the sinks attached to ctx.
func (e *Engine) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	chatReq := e.makeRequest(req)
	log.Debug().
		Int("num_messages", len(chatReq.Messages)).
		Int("num_tools", len(chatReq.Tools)).
		Str("model", e.model).
		Msg("openai: RunInference started")

	metadata := events.EventMetadata{
		ID:        uuid.New(),
		SessionID: req.SessionID,
		Model:     e.model,
	}
	events.PublishEventToContext(ctx, events.NewStartEvent(metadata))

	stream, err := e.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		events.PublishEventToContext(ctx, events.NewErrorEvent(metadata, err))
		return nil, errors.Wrap(err, "openai: create completion stream")
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn().Err(err).Msg("openai: failed to close stream")
		}
	}()

	message := ""
	merger := newToolCallMerger()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			events.PublishEventToContext(ctx, events.NewErrorEvent(metadata, err))
			return nil, errors.Wrap(err, "openai: stream receive")
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if delta := choice.Delta.Content; delta != "" {
			message += delta
			events.PublishEventToContext(ctx, events.NewPartialCompletionEvent(metadata, delta, message))
		}
		if len(choice.Delta.ToolCalls) > 0 {
			merger.add(choice.Delta.ToolCalls)
		}
	}

	mergedCalls := merger.merged()
	log.Debug().
		Int("text_length", len(message)).
		Int("tool_call_count", len(mergedCalls)).
		Msg("openai: streaming complete")

	resp := &engine.Response{Model: e.model}
	if message != "" {
		resp.Turns = append(resp.Turns, turns.NewAssistantTextTurn(message))
	}
	for _, tc := range mergedCalls {
		events.PublishEventToContext(ctx, events.NewToolCallEvent(metadata, events.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		}))
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Warn().Err(err).Str("tool", tc.Function.Name).Msg("openai: unparseable tool arguments")
				args = map[string]any{"_raw": tc.Function.Arguments}
			}
		}
		resp.Turns = append(resp.Turns, turns.NewToolCallTurn(tc.ID, tc.Function.Name, args))
	}

	if len(mergedCalls) == 0 {
		events.PublishEventToContext(ctx, events.NewFinalEvent(metadata, message))
	}
	return resp, nil
}

// makeRequest converts the engine request into an OpenAI chat completion
// request. Consecutive tool_call turns collapse into one assistant message
// so tool results stay adjacent to the tool_calls that requested them.
func (e *Engine) makeRequest(req *engine.Request) go_openai.ChatCompletionRequest {
	var messages []go_openai.ChatCompletionMessage
	if req.Instructions != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}

	for i := 0; i < len(req.Turns); i++ {
		t := req.Turns[i]
		switch t.Kind {
		case turns.KindText:
			role := go_openai.ChatMessageRoleUser
			if t.Role == turns.RoleAssistant {
				role = go_openai.ChatMessageRoleAssistant
			}
			messages = append(messages, go_openai.ChatCompletionMessage{Role: role, Content: t.Text()})
		case turns.KindToolCall:
			var calls []go_openai.ToolCall
			for ; i < len(req.Turns) && req.Turns[i].Kind == turns.KindToolCall; i++ {
				ct := req.Turns[i]
				argBytes, _ := json.Marshal(ct.Payload[turns.PayloadKeyArgs])
				calls = append(calls, go_openai.ToolCall{
					ID:   ct.ToolCallID(),
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      ct.ToolName(),
						Arguments: string(argBytes),
					},
				})
			}
			i--
			messages = append(messages, go_openai.ChatCompletionMessage{
				Role:      go_openai.ChatMessageRoleAssistant,
				ToolCalls: calls,
			})
		case turns.KindToolResult:
			content := t.ResultText()
			if errText, ok := t.Payload[turns.PayloadKeyError].(string); ok && errText != "" {
				content = "Error: " + errText
			}
			messages = append(messages, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: t.ToolCallID(),
			})
		}
	}

	chatReq := go_openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: messages,
		Stream:   true,
	}

	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(chatReq.Tools) > 0 {
		switch req.ToolChoice {
		case engine.ToolChoiceNone:
			chatReq.ToolChoice = "none"
		case engine.ToolChoiceRequired:
			chatReq.ToolChoice = "required"
		default:
			chatReq.ToolChoice = "auto"
		}
	}
	return chatReq
}
