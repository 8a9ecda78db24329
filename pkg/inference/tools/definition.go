// Package tools models the schema-typed operations a capability may invoke
// against an external collaborator. Dispatch is a registry lookup by name,
// never reflection over an ambient decorated set.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// Definition represents a tool that can be called by the model.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Function    Func               `json:"-"`
}

// Func wraps the tool implementation with a pre-compiled executor.
type Func struct {
	fn        interface{}
	executor  func(context.Context, []byte) (interface{}, error)
	inputType reflect.Type
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// NewToolFromFunc creates a Definition from a Go function. Supported
// signatures:
//
//	func(Input) (Result, error)
//	func(context.Context, Input) (Result, error)
//	func() (Result, error)
//	func(context.Context) (Result, error)
//
// The parameter schema is generated from Input's struct tags.
func NewToolFromFunc(name, description string, fn interface{}) (*Definition, error) {
	funcType := reflect.TypeOf(fn)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return nil, fmt.Errorf("provided value is not a function")
	}
	if funcType.NumOut() != 2 || !funcType.Out(1).Implements(errType) {
		return nil, fmt.Errorf("function must return (result, error)")
	}

	inputType, err := toolInputType(funcType)
	if err != nil {
		return nil, err
	}

	schema, err := schemaForInput(inputType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	return &Definition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Function: Func{
			fn:        fn,
			executor:  makeExecutor(fn, funcType, inputType),
			inputType: inputType,
		},
	}, nil
}

// Execute unmarshals args into the tool's input type and calls it.
func (f *Func) Execute(ctx context.Context, args []byte) (interface{}, error) {
	if f.executor == nil {
		return nil, fmt.Errorf("tool function not properly initialized")
	}
	return f.executor(ctx, args)
}

func toolInputType(funcType reflect.Type) (reflect.Type, error) {
	switch funcType.NumIn() {
	case 0:
		return nil, nil
	case 1:
		if funcType.In(0) == ctxType {
			return nil, nil
		}
		return funcType.In(0), nil
	case 2:
		if funcType.In(0) != ctxType {
			return nil, fmt.Errorf("two-arg tool function must be (context.Context, Input)")
		}
		return funcType.In(1), nil
	default:
		return nil, fmt.Errorf("function must take (Input) or (context.Context, Input)")
	}
}

func schemaForInput(inputType reflect.Type) (*jsonschema.Schema, error) {
	if inputType == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	reflector := jsonschema.Reflector{
		// Expand definitions inline instead of using $refs, for provider
		// compatibility.
		DoNotReference: true,
	}
	instance := reflect.New(inputType).Elem().Interface()
	schema := reflector.Reflect(instance)
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	return schema, nil
}

func makeExecutor(fn interface{}, funcType reflect.Type, inputType reflect.Type) func(context.Context, []byte) (interface{}, error) {
	funcValue := reflect.ValueOf(fn)
	wantsCtx := funcType.NumIn() > 0 && funcType.In(0) == ctxType

	return func(ctx context.Context, args []byte) (interface{}, error) {
		in := make([]reflect.Value, 0, 2)
		if wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		if inputType != nil {
			input := reflect.New(inputType).Interface()
			if len(args) > 0 {
				if err := json.Unmarshal(args, input); err != nil {
					return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
				}
			}
			in = append(in, reflect.ValueOf(input).Elem())
		}
		results := funcValue.Call(in)
		result := results[0].Interface()
		if errIface := results[1].Interface(); errIface != nil {
			return result, errIface.(error)
		}
		return result, nil
	}
}

// Call represents a request to execute a tool.
type Call struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Result represents the outcome of a tool execution. Error is textual: tool
// failures are data for the model, not control flow for the caller.
type Result struct {
	ID       string        `json:"id"`
	Result   interface{}   `json:"result"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
