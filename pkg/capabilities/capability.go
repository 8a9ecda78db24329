// Package capabilities defines the domain assistants the orchestrator
// delegates to. Each capability runs a fresh bounded agent per request and
// never lets a failure escape: errors come back as answer text so the
// orchestrator can relay them and keep the conversation alive.
package capabilities

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/events"
	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/inference/toolloop"
	"github.com/applyflow/applyflow/pkg/inference/tools"
	"github.com/applyflow/applyflow/pkg/turns"
)

// Capability is a named specialist: an instruction set plus the tools it
// may call, executed by a tool-calling loop on a shared engine.
type Capability struct {
	Name         string
	Description  string
	Instructions string

	eng           engine.Engine
	registry      tools.Registry
	maxIterations int
}

type Option func(*Capability) error

// WithTools registers tool definitions into the capability's registry.
func WithTools(defs ...*tools.Definition) Option {
	return func(c *Capability) error {
		for _, def := range defs {
			if err := c.registry.RegisterTool(def.Name, *def); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithMaxIterations(n int) Option {
	return func(c *Capability) error {
		c.maxIterations = n
		return nil
	}
}

func New(name, description, instructions string, eng engine.Engine, opts ...Option) (*Capability, error) {
	c := &Capability{
		Name:          name,
		Description:   description,
		Instructions:  instructions,
		eng:           eng,
		registry:      tools.NewInMemoryRegistry(),
		maxIterations: toolloop.DefaultMaxIterations,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handle processes one delegated query with a fresh agent. The answer is
// always text: failures of any kind are folded into an error message
// rather than returned as an error.
func (c *Capability) Handle(ctx context.Context, query string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("capability", c.Name).Interface("panic", r).Msg("capability panicked")
			answer = fmt.Sprintf("Error in %s: %v", c.Name, r)
		}
	}()

	log.Debug().Str("capability", c.Name).Int("query_length", len(query)).Msg("capability invoked")

	// Nested runs stay silent; only the orchestrator's own stream reaches
	// the caller.
	ctx = events.WithoutEventSinks(ctx)

	loop := toolloop.New(
		toolloop.WithEngine(c.eng),
		toolloop.WithRegistry(c.registry),
		toolloop.WithInstructions(c.Instructions),
		toolloop.WithMaxIterations(c.maxIterations),
	)
	produced, err := loop.RunLoop(ctx, []turns.Turn{turns.NewUserTextTurn(query)})
	if err != nil {
		log.Warn().Err(err).Str("capability", c.Name).Msg("capability run failed")
		return fmt.Sprintf("Error in %s: %v", c.Name, err)
	}

	if text := turns.LastAssistantText(produced); text != "" {
		return text
	}
	return fmt.Sprintf("Error in %s: no answer was produced", c.Name)
}

type delegateInput struct {
	Query string `json:"query" jsonschema:"required,description=The user's request for this assistant, with all relevant context"`
}

// AsTool exposes the capability as a single-parameter tool so the
// orchestrator's model can route to it by name.
func (c *Capability) AsTool() (*tools.Definition, error) {
	return tools.NewToolFromFunc(c.Name, c.Description, func(ctx context.Context, in delegateInput) (string, error) {
		return c.Handle(ctx, in.Query), nil
	})
}
