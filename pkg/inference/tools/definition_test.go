package tools

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	A int `json:"a" jsonschema:"required,description=first addend"`
	B int `json:"b" jsonschema:"required,description=second addend"`
}

func TestNewToolFromFuncGeneratesSchema(t *testing.T) {
	def, err := NewToolFromFunc("add", "adds two numbers", func(in addInput) (int, error) {
		return in.A + in.B, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "add", def.Name)
	require.NotNil(t, def.Parameters)
	assert.Equal(t, "object", def.Parameters.Type)

	a, ok := def.Parameters.Properties.Get("a")
	require.True(t, ok)
	assert.Equal(t, "integer", a.Type)
	assert.Contains(t, def.Parameters.Required, "b")
}

func TestExecuteUnmarshalsArguments(t *testing.T) {
	def, err := NewToolFromFunc("add", "adds two numbers", func(in addInput) (int, error) {
		return in.A + in.B, nil
	})
	require.NoError(t, err)

	result, err := def.Function.Execute(context.Background(), []byte(`{"a": 2, "b": 3}`))
	require.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestExecuteContextAwareFunction(t *testing.T) {
	type key struct{}
	def, err := NewToolFromFunc("probe", "reads a context value", func(ctx context.Context, _ addInput) (string, error) {
		v, _ := ctx.Value(key{}).(string)
		return v, nil
	})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), key{}, "hello")
	result, err := def.Function.Execute(ctx, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestExecuteNoInputFunction(t *testing.T) {
	def, err := NewToolFromFunc("now", "returns a constant", func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "object", def.Parameters.Type)

	result, err := def.Function.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecutePropagatesToolError(t *testing.T) {
	def, err := NewToolFromFunc("boom", "always fails", func(addInput) (int, error) {
		return 0, errors.New("backend down")
	})
	require.NoError(t, err)

	_, err = def.Function.Execute(context.Background(), []byte(`{"a":1,"b":2}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestNewToolFromFuncRejectsBadSignatures(t *testing.T) {
	_, err := NewToolFromFunc("bad", "not a function", 42)
	assert.Error(t, err)

	_, err = NewToolFromFunc("bad", "wrong returns", func(addInput) int { return 0 })
	assert.Error(t, err)

	_, err = NewToolFromFunc("bad", "ctx must come first", func(addInput, context.Context) (int, error) {
		return 0, nil
	})
	assert.Error(t, err)

	_, err = NewToolFromFunc("bad", "invalid arguments", func(in addInput) (int, error) {
		return in.A, nil
	})
	require.NoError(t, err)
}

func TestExecuteRejectsMalformedArguments(t *testing.T) {
	def, err := NewToolFromFunc("add", "adds two numbers", func(in addInput) (int, error) {
		return in.A + in.B, nil
	})
	require.NoError(t, err)

	_, err = def.Function.Execute(context.Background(), []byte(`{"a": "not a number"}`))
	assert.Error(t, err)
}
