// Package provider assembles interchangeable model-calling strategies behind
// contract.Provider and caches one instance per business+session.
package provider

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	feedbackx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/feedback"
	llmx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/llm"
	orchestratorx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/orchestrator"
	promptx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/prompt"
	routerx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/router"
	sessionx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/session"
	toolx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/tool"
)

// Kind tags a provider strategy. New strategies register a constructor under
// their kind instead of growing a switch.
type Kind string

const KindOpenRouter Kind = "openrouter"

// Deps is everything a constructor may need. Store defaults to the
// in-memory implementation when nil.
type Deps struct {
	Models llmx.Config
	Repo   contractx.BookingRepository
	Store  sessionx.Store

	MaxLoops    int
	CallTimeout time.Duration
	StreamDelay time.Duration
	Farewell    string
}

func (d Deps) validate() error {
	if d.Repo == nil {
		return fmt.Errorf("%w: booking repository is required", contractx.ErrValidation)
	}
	return d.Models.Validate()
}

// agentProvider is the openrouter strategy: a full orchestrator over the
// OpenRouter chat completion endpoint.
type agentProvider struct {
	orch      *orchestratorx.Orchestrator
	store     sessionx.Store
	sessionID string
}

func (p *agentProvider) StreamResponse(ctx context.Context, turns []contractx.Turn, opts contractx.ResponseOptions) (<-chan contractx.StreamEvent, error) {
	return p.orch.StreamResponse(ctx, turns, opts)
}

func (p *agentProvider) InvokeResponse(ctx context.Context, turns []contractx.Turn, opts contractx.ResponseOptions) (*contractx.Response, error) {
	return p.orch.InvokeResponse(ctx, turns, opts)
}

// CloseSession tears down the conversation state for this provider's session.
func (p *agentProvider) CloseSession(ctx context.Context) error {
	return p.store.Clear(ctx, p.sessionID)
}

func newOpenRouterProvider(deps Deps, key Key) (contractx.Provider, error) {
	agentModel, err := llmx.NewOpenAIModel(deps.Models.OpenRouterFor(llmx.RoleAgent))
	if err != nil {
		return nil, fmt.Errorf("build agent model: %w", err)
	}
	routerModel, err := llmx.NewOpenAIModel(deps.Models.OpenRouterFor(llmx.RoleRouter))
	if err != nil {
		return nil, fmt.Errorf("build router model: %w", err)
	}
	feedbackModel, err := llmx.NewOpenAIModel(deps.Models.OpenRouterFor(llmx.RoleFeedback))
	if err != nil {
		return nil, fmt.Errorf("build feedback model: %w", err)
	}

	selector, err := promptx.NewSelector()
	if err != nil {
		return nil, fmt.Errorf("build prompt selector: %w", err)
	}
	intents, err := routerx.New(routerModel, selector.RouterPrompt())
	if err != nil {
		return nil, fmt.Errorf("build intent router: %w", err)
	}

	store := deps.Store
	if store == nil {
		store = sessionx.NewMemoryStore()
	}

	registry := toolx.NewRegistry(deps.Repo, store, key.BusinessID, key.SessionID)
	progress := feedbackx.New(feedbackx.WithContextualModel(feedbackModel))

	orch, err := orchestratorx.New(agentModel, intents, selector, registry, deps.Repo, progress, orchestratorx.Config{
		BusinessID:  key.BusinessID,
		SessionID:   key.SessionID,
		MaxLoops:    deps.MaxLoops,
		CallTimeout: deps.CallTimeout,
		StreamDelay: deps.StreamDelay,
		Farewell:    deps.Farewell,
	})
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	return &agentProvider{orch: orch, store: store, sessionID: key.SessionID}, nil
}
