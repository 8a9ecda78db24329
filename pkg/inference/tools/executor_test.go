package tools

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow/pkg/events"
)

func executorRegistry(t *testing.T) Registry {
	t.Helper()
	reg := NewInMemoryRegistry()

	echo, err := NewToolFromFunc("echo", "echoes input", func(in addInput) (int, error) {
		return in.A, nil
	})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterTool("echo", *echo))

	broken, err := NewToolFromFunc("broken", "always fails", func() (string, error) {
		return "", errors.New("service unavailable")
	})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterTool("broken", *broken))

	slow, err := NewToolFromFunc("slow", "waits for the context", func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Second):
			return "too late", nil
		}
	})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterTool("slow", *slow))

	return reg
}

func TestExecuteCallReturnsResult(t *testing.T) {
	exec := NewExecutor(0)
	result := exec.ExecuteCall(context.Background(), Call{
		ID:        "call-1",
		Name:      "echo",
		Arguments: []byte(`{"a": 7, "b": 0}`),
	}, executorRegistry(t))

	assert.Empty(t, result.Error)
	assert.Equal(t, 7, result.Result)
	assert.Equal(t, "call-1", result.ID)
}

func TestExecuteCallUnknownToolIsTextualError(t *testing.T) {
	exec := NewExecutor(0)
	result := exec.ExecuteCall(context.Background(), Call{ID: "call-1", Name: "nope"}, executorRegistry(t))

	assert.Equal(t, "tool not found: nope", result.Error)
}

func TestExecuteCallFailureIsTextualError(t *testing.T) {
	exec := NewExecutor(0)
	result := exec.ExecuteCall(context.Background(), Call{ID: "call-1", Name: "broken"}, executorRegistry(t))

	assert.Contains(t, result.Error, "service unavailable")
}

func TestExecuteCallHonorsTimeout(t *testing.T) {
	exec := NewExecutor(50 * time.Millisecond)
	result := exec.ExecuteCall(context.Background(), Call{ID: "call-1", Name: "slow"}, executorRegistry(t))

	assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
}

func TestExecuteCallsStopOnCancelledContext(t *testing.T) {
	exec := NewExecutor(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := exec.ExecuteCalls(ctx, []Call{{ID: "call-1", Name: "echo"}}, executorRegistry(t))
	require.Error(t, err)
	assert.Empty(t, results)
}

func TestExecuteCallPublishesEvents(t *testing.T) {
	var published []events.Event
	sink := events.EventSinkFunc(func(e events.Event) error {
		published = append(published, e)
		return nil
	})
	ctx := events.WithEventSinks(context.Background(), sink)

	exec := NewExecutor(0)
	_ = exec.ExecuteCall(ctx, Call{ID: "call-1", Name: "echo", Arguments: []byte(`{"a": 1}`)}, executorRegistry(t))

	require.Len(t, published, 2)
	assert.Equal(t, events.EventTypeToolCall, published[0].Type())
	assert.Equal(t, events.EventTypeToolResult, published[1].Type())
}
