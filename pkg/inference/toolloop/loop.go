// Package toolloop drives an engine and a tool registry to completion:
// inference, execute pending tool calls, re-enter, until the model
// concludes with text or the iteration cap is hit.
package toolloop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/inference/tools"
	"github.com/applyflow/applyflow/pkg/turns"
)

// DefaultMaxIterations caps inference/tool-execution rounds per run.
const DefaultMaxIterations = 10

type Loop struct {
	eng           engine.Engine
	registry      tools.Registry
	instructions  string
	sessionID     string
	maxIterations int
	executor      *tools.Executor
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		maxIterations: DefaultMaxIterations,
		executor:      tools.NewExecutor(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func WithEngine(eng engine.Engine) Option {
	return func(l *Loop) { l.eng = eng }
}

func WithRegistry(reg tools.Registry) Option {
	return func(l *Loop) { l.registry = reg }
}

func WithInstructions(instructions string) Option {
	return func(l *Loop) { l.instructions = instructions }
}

func WithSessionID(id string) Option {
	return func(l *Loop) { l.sessionID = id }
}

func WithMaxIterations(n int) Option {
	return func(l *Loop) { l.maxIterations = n }
}

func WithExecutor(exec *tools.Executor) Option {
	return func(l *Loop) { l.executor = exec }
}

// RunLoop runs the tool-calling workflow against the seed transcript and
// returns the new turns produced (model output and tool results), in
// production order. The seed itself is never mutated.
func (l *Loop) RunLoop(ctx context.Context, seed []turns.Turn) ([]turns.Turn, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.eng == nil {
		return nil, errors.New("tool loop engine is nil")
	}
	if l.registry == nil {
		return nil, errors.New("tool loop registry is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxIterations := l.maxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	transcript := make([]turns.Turn, len(seed))
	copy(transcript, seed)
	var produced []turns.Turn

	for i := 0; i < maxIterations; i++ {
		log.Debug().Int("iteration", i+1).Msg("toolloop: engine inference step")

		resp, err := l.eng.RunInference(ctx, &engine.Request{
			Instructions: l.instructions,
			Turns:        transcript,
			Tools:        l.registry.ListTools(),
			SessionID:    l.sessionID,
		})
		if err != nil {
			return produced, err
		}

		transcript = append(transcript, resp.Turns...)
		produced = append(produced, resp.Turns...)

		calls := turns.PendingToolCalls(resp.Turns)
		if len(calls) == 0 {
			return produced, nil
		}

		resultTurns := l.executeTools(ctx, calls)
		transcript = append(transcript, resultTurns...)
		produced = append(produced, resultTurns...)
	}

	log.Warn().Int("max_iterations", maxIterations).Msg("toolloop: maximum iterations reached")
	return produced, fmt.Errorf("max iterations (%d) reached", maxIterations)
}

func (l *Loop) executeTools(ctx context.Context, callTurns []turns.Turn) []turns.Turn {
	execCalls := make([]tools.Call, 0, len(callTurns))
	for _, ct := range callTurns {
		argBytes, _ := json.Marshal(ct.Payload[turns.PayloadKeyArgs])
		execCalls = append(execCalls, tools.Call{
			ID:        ct.ToolCallID(),
			Name:      ct.ToolName(),
			Arguments: json.RawMessage(argBytes),
		})
	}

	executor := l.executor
	if executor == nil {
		executor = tools.NewExecutor(0)
	}
	results, err := executor.ExecuteCalls(ctx, execCalls, l.registry)

	out := make([]turns.Turn, 0, len(callTurns))
	for i, ct := range callTurns {
		if i >= len(results) || results[i] == nil {
			reason := "no result returned"
			if err != nil {
				reason = err.Error()
			}
			out = append(out, turns.NewToolErrorTurn(ct.ToolCallID(), reason))
			continue
		}
		r := results[i]
		if r.Error != "" {
			out = append(out, turns.NewToolErrorTurn(r.ID, r.Error))
			continue
		}
		var content string
		if s, ok := r.Result.(string); ok {
			content = s
		} else if b, err := json.Marshal(r.Result); err == nil {
			content = string(b)
		} else {
			content = fmt.Sprintf("%v", r.Result)
		}
		out = append(out, turns.NewToolResultTurn(r.ID, content))
	}
	return out
}
