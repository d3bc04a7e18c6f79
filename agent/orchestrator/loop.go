package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	recoveryx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/recovery"
	routerx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/router"
)

// runTurn drives the Invoke -> execute-tools -> Invoke cycle until the model
// answers without tool calls or the loop bound is hit. Tool failures never
// escape as errors; they are fed back to the model as directive text. The
// returned error always has a matching error event already emitted.
func (o *Orchestrator) runTurn(ctx context.Context, turns []contractx.Turn, loopBound int, em *emitter) (*contractx.Response, error) {
	utterance := turns[len(turns)-1].Content
	result := o.intents.Classify(ctx, utterance, routerx.SummarizeHistory(turns))
	em.send(ctx, contractx.StreamEvent{Type: contractx.EventIntent, Intent: result.Intent})

	if result.Intent == contractx.IntentSessionEnd {
		em.send(ctx, contractx.StreamEvent{Type: contractx.EventChunk, Content: o.farewell})
		em.send(ctx, contractx.StreamEvent{
			Type:    contractx.EventSessionEnd,
			Message: o.farewell,
			Reason:  "user_goodbye",
		})
		return &contractx.Response{Content: o.farewell, Intent: result.Intent}, nil
	}

	snapshot, err := o.snapshots.Snapshot(ctx, o.businessID)
	if err != nil {
		return nil, o.failTurn(ctx, em, fmt.Errorf("load business snapshot: %w", err))
	}
	systemPrompt, err := o.prompts.Select(result.Intent, *snapshot)
	if err != nil {
		return nil, o.failTurn(ctx, em, fmt.Errorf("select prompt: %w", err))
	}

	messages := make([]contractx.Message, 0, len(turns)+1)
	messages = append(messages, contractx.Message{Role: contractx.RoleSystem, Content: systemPrompt})
	for _, turn := range turns {
		if turn.Role != contractx.RoleUser && turn.Role != contractx.RoleAssistant {
			continue
		}
		messages = append(messages, contractx.Message{Role: turn.Role, Content: turn.Content})
	}

	definitions := o.tools.Definitions()
	var lastReply *contractx.ModelReply

	for iteration := 0; iteration < loopBound; iteration++ {
		if iteration == 0 {
			em.feedback(ctx, o.progress.Thinking())
		}

		reply, err := o.invokeModel(ctx, messages, definitions)
		if err != nil {
			return nil, o.failTurn(ctx, em, err)
		}
		lastReply = reply

		if len(reply.ToolCalls) == 0 {
			return &contractx.Response{Content: reply.Content, Intent: result.Intent}, nil
		}

		// Unregistered tool names are dropped before anything is recorded
		// so the transcript never carries a call without a result.
		calls := make([]contractx.ToolCall, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			if !o.tools.Has(call.Name) {
				log.Warn().Str("tool", call.Name).Str("session_id", o.sessionID).
					Msg("model requested an unknown tool, skipping")
				continue
			}
			calls = append(calls, call)
		}
		if len(calls) == 0 {
			return &contractx.Response{Content: reply.Content, Intent: result.Intent}, nil
		}

		messages = append(messages, contractx.Message{
			Role:      contractx.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: calls,
		})

		for _, call := range calls {
			em.send(ctx, contractx.StreamEvent{Type: contractx.EventToolStart, ToolName: call.Name})
			em.feedback(ctx, o.progress.Progress(call.Name))

			text, ok := o.executeWithRetry(ctx, call, em)

			em.send(ctx, contractx.StreamEvent{Type: contractx.EventToolEnd, ToolName: call.Name, Success: ok})
			messages = append(messages, contractx.Message{
				Role:       contractx.RoleTool,
				Content:    text,
				ToolCallID: call.ID,
			})
		}
	}

	log.Warn().Int("loop_bound", loopBound).Str("session_id", o.sessionID).
		Msg("turn hit the loop bound, returning last model response")
	content := ""
	if lastReply != nil {
		content = lastReply.Content
	}
	return &contractx.Response{Content: content, Intent: result.Intent}, nil
}

func (o *Orchestrator) failTurn(ctx context.Context, em *emitter, err error) error {
	log.Error().Err(err).Str("session_id", o.sessionID).Msg("turn failed")
	em.send(ctx, contractx.StreamEvent{Type: contractx.EventError, Error: err.Error()})
	return err
}

func (o *Orchestrator) invokeModel(ctx context.Context, messages []contractx.Message, definitions []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	reply, err := o.model.Complete(callCtx, messages, definitions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return reply, nil
}

// executeWithRetry runs one tool call with up to two retries for temporary
// failures, waiting Backoff(attempt) between attempts. It returns the text to
// feed back to the model and whether the call ultimately succeeded.
func (o *Orchestrator) executeWithRetry(ctx context.Context, call contractx.ToolCall, em *emitter) (string, bool) {
	start := o.now()

	for attempt := 0; ; attempt++ {
		outcome := o.executeOnce(ctx, call, em)
		if outcome.OK {
			return outcome.Message, true
		}

		info := recoveryx.InfoFromOutcome(call.Name, outcome, call.Args, o.now())
		if !recoveryx.ShouldRetry(info, attempt) {
			log.Debug().Str("tool", call.Name).Str("error_type", string(info.ErrorType)).
				Int("attempts", attempt+1).Msg("tool call gave up")
			return recoveryx.FormatForAgent(info), false
		}

		em.feedback(ctx, o.progress.Waiting(call.Name, o.now().Sub(start)))
		if err := o.sleep(ctx, recoveryx.Backoff(attempt)); err != nil {
			canceled := recoveryx.NewErrorInfo(call.Name, "operación cancelada: "+err.Error(), call.Args, o.now())
			return recoveryx.FormatForAgent(canceled), false
		}
	}
}

// executeOnce runs a single attempt under the per-call deadline. A deadline
// expiry becomes a temporary failure instead of hanging the turn.
func (o *Orchestrator) executeOnce(ctx context.Context, call contractx.ToolCall, em *emitter) contractx.ToolOutcome {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	stop := o.watchLongWait(callCtx, call.Name, em)
	outcome := o.tools.Execute(callCtx, call.Name, call.Args)
	stop()

	if !outcome.OK && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return contractx.FailureOutcome(contractx.ErrorTemporary,
			fmt.Sprintf("tiempo de espera agotado ejecutando %s tras %s", call.Name, o.callTimeout))
	}
	return outcome
}
