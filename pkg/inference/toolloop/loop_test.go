package toolloop

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/inference/tools"
	"github.com/applyflow/applyflow/pkg/turns"
)

// toolCallingFakeEngine requests one echo call, then concludes once the
// transcript contains its result.
type toolCallingFakeEngine struct {
	calls atomic.Int64
}

func (e *toolCallingFakeEngine) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	e.calls.Add(1)

	answered := false
	for _, t := range req.Turns {
		if t.Kind == turns.KindToolResult && t.ToolCallID() == "call-1" {
			answered = true
			break
		}
	}
	if !answered {
		return &engine.Response{
			Turns: []turns.Turn{turns.NewToolCallTurn("call-1", "echo", map[string]any{"text": "hello"})},
		}, nil
	}
	return &engine.Response{Turns: []turns.Turn{turns.NewAssistantTextTurn("done")}}, nil
}

func newEchoRegistry(t *testing.T) *tools.InMemoryRegistry {
	t.Helper()
	reg := tools.NewInMemoryRegistry()
	type echoIn struct {
		Text string `json:"text"`
	}
	echoTool, err := tools.NewToolFromFunc("echo", "Echo back the provided text", func(in echoIn) (map[string]any, error) {
		return map[string]any{"echo": in.Text}, nil
	})
	if err != nil {
		t.Fatalf("NewToolFromFunc: %v", err)
	}
	if err := reg.RegisterTool("echo", *echoTool); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}
	return reg
}

func TestLoopExecutesToolsAndConcludes(t *testing.T) {
	t.Parallel()

	eng := &toolCallingFakeEngine{}
	loop := New(
		WithEngine(eng),
		WithRegistry(newEchoRegistry(t)),
		WithMaxIterations(3),
	)

	seed := []turns.Turn{turns.NewUserTextTurn("please echo")}
	out, err := loop.RunLoop(context.Background(), seed)
	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if eng.calls.Load() != 2 {
		t.Fatalf("expected engine to be called twice, got %d", eng.calls.Load())
	}

	foundResult := ""
	for _, tn := range out {
		if tn.Kind == turns.KindToolResult && tn.ToolCallID() == "call-1" {
			foundResult = tn.ResultText()
		}
	}
	if !strings.Contains(foundResult, "hello") {
		t.Fatalf("expected tool result to contain 'hello', got %q", foundResult)
	}

	if got := turns.LastAssistantText(out); got != "done" {
		t.Fatalf("expected final assistant text 'done', got %q", got)
	}
}

func TestLoopDoesNotMutateSeed(t *testing.T) {
	t.Parallel()

	loop := New(
		WithEngine(&toolCallingFakeEngine{}),
		WithRegistry(newEchoRegistry(t)),
		WithMaxIterations(3),
	)

	seed := []turns.Turn{turns.NewUserTextTurn("please echo")}
	if _, err := loop.RunLoop(context.Background(), seed); err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if len(seed) != 1 {
		t.Fatalf("seed transcript mutated: %d turns", len(seed))
	}
}

// failingToolEngine always requests a tool that raises.
type failingToolEngine struct{}

func (e *failingToolEngine) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	for _, t := range req.Turns {
		if t.Kind == turns.KindToolResult {
			return &engine.Response{Turns: []turns.Turn{turns.NewAssistantTextTurn("the tool failed: " + t.ResultText())}}, nil
		}
	}
	return &engine.Response{
		Turns: []turns.Turn{turns.NewToolCallTurn("call-1", "boom", map[string]any{})},
	}, nil
}

func TestLoopConvertsToolErrorsToResults(t *testing.T) {
	t.Parallel()

	reg := tools.NewInMemoryRegistry()
	boom, err := tools.NewToolFromFunc("boom", "Always fails", func() (string, error) {
		return "", context.DeadlineExceeded
	})
	if err != nil {
		t.Fatalf("NewToolFromFunc: %v", err)
	}
	if err := reg.RegisterTool("boom", *boom); err != nil {
		t.Fatalf("RegisterTool: %v", err)
	}

	loop := New(WithEngine(&failingToolEngine{}), WithRegistry(reg), WithMaxIterations(3))
	out, err := loop.RunLoop(context.Background(), []turns.Turn{turns.NewUserTextTurn("go")})
	if err != nil {
		t.Fatalf("RunLoop should not fail on tool errors: %v", err)
	}

	foundError := false
	for _, tn := range out {
		if tn.Kind == turns.KindToolResult {
			if _, ok := tn.Payload[turns.PayloadKeyError]; ok {
				foundError = true
			}
		}
	}
	if !foundError {
		t.Fatalf("expected an error-tagged tool result turn")
	}
}

// chattyEngine never concludes; it keeps requesting tool calls.
type chattyEngine struct {
	n atomic.Int64
}

func (e *chattyEngine) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	id := e.n.Add(1)
	return &engine.Response{
		Turns: []turns.Turn{turns.NewToolCallTurn(
			"call-"+strings.Repeat("x", int(id%5)+1), "echo", map[string]any{"text": "again"},
		)},
	}, nil
}

func TestLoopStopsAtMaxIterations(t *testing.T) {
	t.Parallel()

	eng := &chattyEngine{}
	loop := New(WithEngine(eng), WithRegistry(newEchoRegistry(t)), WithMaxIterations(4))
	_, err := loop.RunLoop(context.Background(), []turns.Turn{turns.NewUserTextTurn("go")})
	if err == nil {
		t.Fatalf("expected max-iterations error")
	}
	if eng.n.Load() != 4 {
		t.Fatalf("expected 4 inference calls, got %d", eng.n.Load())
	}
}
