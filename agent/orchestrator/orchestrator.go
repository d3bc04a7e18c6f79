// Package orchestrator runs the model/tool loop for one conversation turn and
// exposes the result as an ordered event stream.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	feedbackx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/feedback"
	promptx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/prompt"
	routerx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/router"
)

const (
	defaultMaxLoops    = 6
	minLoops           = 5
	maxLoops           = 8
	defaultCallTimeout = 60 * time.Second
	defaultStreamDelay = 30 * time.Millisecond
	defaultEventBuffer = 32

	defaultFarewell = "¡Gracias por escribirnos! Que tengas un excelente día."
)

// ToolExecutor is the registry surface the loop drives.
type ToolExecutor interface {
	Definitions() []contractx.ToolDefinition
	Has(name string) bool
	Execute(ctx context.Context, name string, args map[string]any) contractx.ToolOutcome
}

// SnapshotSource provides the business context that parameterizes prompts.
// contract.BookingRepository satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context, businessID string) (*contractx.BusinessSnapshot, error)
}

type Config struct {
	BusinessID string
	SessionID  string

	// MaxLoops bounds model invocations per turn. Values are clamped to
	// [5, 8]; zero means the default of 6.
	MaxLoops    int
	CallTimeout time.Duration
	StreamDelay time.Duration
	Farewell    string
}

type Orchestrator struct {
	model     contractx.ChatModel
	intents   *routerx.Router
	prompts   *promptx.Selector
	tools     ToolExecutor
	snapshots SnapshotSource
	progress  *feedbackx.Generator

	businessID  string
	sessionID   string
	maxTurns    int
	callTimeout time.Duration
	streamDelay time.Duration
	farewell    string

	// Long-wait thresholds, ascending. Overridable in tests.
	longWaitStages []time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(
	model contractx.ChatModel,
	intents *routerx.Router,
	prompts *promptx.Selector,
	tools ToolExecutor,
	snapshots SnapshotSource,
	progress *feedbackx.Generator,
	cfg Config,
) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if intents == nil {
		return nil, errors.New("intent router is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt selector is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if snapshots == nil {
		return nil, errors.New("snapshot source is required")
	}
	if cfg.BusinessID == "" {
		return nil, fmt.Errorf("%w: business id is required", contractx.ErrValidation)
	}
	if progress == nil {
		progress = feedbackx.New()
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	streamDelay := cfg.StreamDelay
	if streamDelay < 0 {
		streamDelay = defaultStreamDelay
	}
	farewell := cfg.Farewell
	if farewell == "" {
		farewell = defaultFarewell
	}

	return &Orchestrator{
		model:       model,
		intents:     intents,
		prompts:     prompts,
		tools:       tools,
		snapshots:   snapshots,
		progress:    progress,
		businessID:  cfg.BusinessID,
		sessionID:   cfg.SessionID,
		maxTurns:    clampLoops(cfg.MaxLoops),
		callTimeout: callTimeout,
		streamDelay: streamDelay,
		farewell:    farewell,
		longWaitStages: []time.Duration{
			feedbackx.StageWorkingAfter,
			feedbackx.StagePatienceAfter,
			feedbackx.StageApologyAfter,
		},
		now:   time.Now,
		sleep: sleepContext,
	}, nil
}

func clampLoops(n int) int {
	switch {
	case n == 0:
		return defaultMaxLoops
	case n < minLoops:
		return minLoops
	case n > maxLoops:
		return maxLoops
	default:
		return n
	}
}

func (o *Orchestrator) loops(opts contractx.ResponseOptions) int {
	if opts.MaxLoops != 0 {
		return clampLoops(opts.MaxLoops)
	}
	return o.maxTurns
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StreamResponse runs one turn and returns the ordered event channel. The
// channel is closed when the turn finishes; callers consume it exactly once.
func (o *Orchestrator) StreamResponse(ctx context.Context, turns []contractx.Turn, opts contractx.ResponseOptions) (<-chan contractx.StreamEvent, error) {
	if err := validateTurns(turns); err != nil {
		return nil, err
	}

	events := make(chan contractx.StreamEvent, defaultEventBuffer)
	em := &emitter{ch: events}

	go func() {
		defer close(events)

		resp, err := o.runTurn(ctx, turns, o.loops(opts), em)
		if err != nil {
			return // the error event is already on the channel
		}
		if resp.Intent == contractx.IntentSessionEnd {
			return
		}
		o.streamWords(ctx, em, cleanAnnotations(resp.Content))
	}()

	return events, nil
}

// InvokeResponse runs one turn without streaming; progress events are dropped.
func (o *Orchestrator) InvokeResponse(ctx context.Context, turns []contractx.Turn, opts contractx.ResponseOptions) (*contractx.Response, error) {
	if err := validateTurns(turns); err != nil {
		return nil, err
	}

	resp, err := o.runTurn(ctx, turns, o.loops(opts), &emitter{})
	if err != nil {
		return nil, err
	}
	resp.Content = cleanAnnotations(resp.Content)
	return resp, nil
}

func validateTurns(turns []contractx.Turn) error {
	if len(turns) == 0 {
		return fmt.Errorf("%w: at least one turn is required", contractx.ErrValidation)
	}
	last := turns[len(turns)-1]
	if last.Role != contractx.RoleUser {
		return fmt.Errorf("%w: last turn must be from the user", contractx.ErrValidation)
	}
	return nil
}
