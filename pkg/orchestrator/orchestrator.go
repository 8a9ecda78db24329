// Package orchestrator ties the pieces together: it loads session history,
// windows it, runs the routing model with the capabilities exposed as
// tools, and persists the exchange. Delegation failures come back as
// answer text, so a broken capability degrades the answer, not the run.
package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/capabilities"
	"github.com/applyflow/applyflow/pkg/conversation"
	"github.com/applyflow/applyflow/pkg/events"
	"github.com/applyflow/applyflow/pkg/inference/engine"
	"github.com/applyflow/applyflow/pkg/inference/toolloop"
	"github.com/applyflow/applyflow/pkg/inference/tools"
	"github.com/applyflow/applyflow/pkg/sessions"
	"github.com/applyflow/applyflow/pkg/turns"
)

// DefaultInstructions is the routing prompt for the coordinating model.
const DefaultInstructions = `You are ApplyFlow Assistant, an intelligent job application management system.
You coordinate specialized agents to help users manage their job search effectively.

Route queries to the appropriate specialized agent:

- For analytics, insights, trends, success rates, or data analysis, use job_analytics_assistant
- For creating, viewing, updating, deleting, or organizing applications, use application_management_assistant
- For resume tips, tailoring, optimization, or job description analysis, use resume_assistant
- For simple greetings or questions not requiring specialized knowledge, answer directly

Always select the most appropriate tool based on the user's query to provide
the best possible assistance.`

type Orchestrator struct {
	eng              engine.Engine
	store            sessions.Store
	caps             []*capabilities.Capability
	window           conversation.Policy
	instructions     string
	maxIterations    int
	persistToolTurns bool
}

type Option func(*Orchestrator)

func WithEngine(eng engine.Engine) Option {
	return func(o *Orchestrator) { o.eng = eng }
}

func WithStore(store sessions.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

func WithCapabilities(caps ...*capabilities.Capability) Option {
	return func(o *Orchestrator) { o.caps = append(o.caps, caps...) }
}

func WithWindowPolicy(p conversation.Policy) Option {
	return func(o *Orchestrator) { o.window = p }
}

func WithInstructions(instructions string) Option {
	return func(o *Orchestrator) { o.instructions = instructions }
}

func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) { o.maxIterations = n }
}

// WithPersistToolTurns also writes tool call and result turns to the
// session. Off by default: the stored transcript then holds exactly the
// user prompt and the final answer per exchange.
func WithPersistToolTurns(persist bool) Option {
	return func(o *Orchestrator) { o.persistToolTurns = persist }
}

func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		window:        conversation.DefaultPolicy(),
		instructions:  DefaultInstructions,
		maxIterations: toolloop.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.eng == nil {
		return nil, errors.New("orchestrator: engine is required")
	}
	if o.store == nil {
		return nil, errors.New("orchestrator: session store is required")
	}
	return o, nil
}

// Respond processes one prompt and returns the complete answer.
func (o *Orchestrator) Respond(ctx context.Context, sessionID, prompt string) (string, error) {
	return o.run(ctx, sessionID, prompt, nil)
}

// RespondStream processes one prompt, forwarding answer chunks to onChunk
// as they arrive. Nothing is forwarded until the model signals readiness
// through the ready_to_respond tool; a run that never signals produces the
// full answer with zero chunks.
func (o *Orchestrator) RespondStream(ctx context.Context, sessionID, prompt string, onChunk func(chunk string) error) (string, error) {
	ready := false
	readyTool, err := tools.NewToolFromFunc("ready_to_respond",
		"Indicate that you are ready to provide your response to the user.",
		func() (string, error) {
			ready = true
			return "Ok - continue with your response!", nil
		})
	if err != nil {
		return "", errors.Wrap(err, "orchestrator: build ready_to_respond tool")
	}

	gate := events.EventSinkFunc(func(e events.Event) error {
		if !ready {
			return nil
		}
		if partial, ok := e.(*events.EventPartialCompletion); ok {
			return onChunk(partial.Delta)
		}
		return nil
	})
	ctx = events.WithEventSinks(ctx, gate)

	return o.run(ctx, sessionID, prompt, readyTool)
}

// History returns the full stored transcript for a session.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]turns.Turn, error) {
	return o.store.Load(ctx, sessionID)
}

func (o *Orchestrator) run(ctx context.Context, sessionID, prompt string, extraTool *tools.Definition) (string, error) {
	if prompt == "" {
		return "", errors.New("orchestrator: no prompt provided")
	}

	history, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return "", errors.Wrap(err, "orchestrator: load session")
	}

	userTurn := turns.NewUserTextTurn(prompt)
	seed := conversation.Window(append(history, userTurn), o.window)

	registry, err := o.buildRegistry(extraTool)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("session_id", sessionID).
		Int("history_turns", len(history)).
		Int("window_turns", len(seed)).
		Msg("orchestrator run started")

	loop := toolloop.New(
		toolloop.WithEngine(o.eng),
		toolloop.WithRegistry(registry),
		toolloop.WithInstructions(o.instructions),
		toolloop.WithSessionID(sessionID),
		toolloop.WithMaxIterations(o.maxIterations),
	)
	produced, err := loop.RunLoop(ctx, seed)
	if err != nil {
		return "", errors.Wrap(err, "orchestrator: inference")
	}

	answer := turns.LastAssistantText(produced)

	newTurns := []turns.Turn{userTurn}
	if o.persistToolTurns {
		newTurns = append(newTurns, produced...)
	} else if answer != "" {
		newTurns = append(newTurns, turns.NewAssistantTextTurn(answer))
	}
	if err := o.store.Append(ctx, sessionID, newTurns); err != nil {
		return "", errors.Wrap(err, "orchestrator: persist session")
	}

	log.Debug().
		Str("session_id", sessionID).
		Int("new_turns", len(newTurns)).
		Int("answer_length", len(answer)).
		Msg("orchestrator run finished")

	return answer, nil
}

func (o *Orchestrator) buildRegistry(extraTool *tools.Definition) (tools.Registry, error) {
	registry := tools.NewInMemoryRegistry()
	for _, cap_ := range o.caps {
		def, err := cap_.AsTool()
		if err != nil {
			return nil, errors.Wrapf(err, "orchestrator: expose capability %s", cap_.Name)
		}
		if err := registry.RegisterTool(def.Name, *def); err != nil {
			return nil, errors.Wrapf(err, "orchestrator: register capability %s", cap_.Name)
		}
	}
	if extraTool != nil {
		if err := registry.RegisterTool(extraTool.Name, *extraTool); err != nil {
			return nil, errors.Wrapf(err, "orchestrator: register tool %s", extraTool.Name)
		}
	}
	return registry, nil
}
