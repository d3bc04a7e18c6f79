package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// emitter is the single merged sink for the loop goroutine, the retry waiter
// and the long-wait watcher, so every event reaches the one channel the
// caller consumes. A zero emitter drops everything (invoke mode).
type emitter struct {
	ch chan contractx.StreamEvent
}

func (e *emitter) send(ctx context.Context, ev contractx.StreamEvent) bool {
	if e.ch == nil {
		return true
	}
	select {
	case e.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *emitter) feedback(ctx context.Context, fb contractx.FeedbackEvent) bool {
	return e.send(ctx, contractx.StreamEvent{Type: contractx.EventFeedback, Feedback: &fb})
}

// watchLongWait enqueues a staged progress message each time a slow tool call
// crosses one of the configured thresholds. The returned stop function must
// be called when the tool attempt finishes.
func (o *Orchestrator) watchLongWait(ctx context.Context, toolName string, em *emitter) (stop func()) {
	if em.ch == nil || len(o.longWaitStages) == 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		start := time.Now()
		for _, threshold := range o.longWaitStages {
			wait := threshold - time.Since(start)
			if wait < 0 {
				wait = 0
			}
			timer := time.NewTimer(wait)
			select {
			case <-done:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				em.feedback(ctx, o.progress.LongWait(ctx, toolName, time.Since(start)))
			}
		}
	}()
	return func() { close(done) }
}

// Placeholder annotations some models insert while "narrating" tool use,
// e.g. "[esperando resultados...]" or "(consultando...)".
var placeholderPattern = regexp.MustCompile(`\s*(?:\[[^\[\]]*(?:\.\.\.|…)\]|\([^()]*(?:\.\.\.|…)\))`)

func cleanAnnotations(content string) string {
	cleaned := placeholderPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(cleaned)
}

// streamWords emits the final answer word by word with a fixed pacing delay.
// Every chunk except the last carries a trailing space so callers can
// concatenate chunks verbatim.
func (o *Orchestrator) streamWords(ctx context.Context, em *emitter, content string) {
	words := strings.Fields(content)
	for i, word := range words {
		if i > 0 {
			if err := o.sleep(ctx, o.streamDelay); err != nil {
				return
			}
		}
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if !em.send(ctx, contractx.StreamEvent{Type: contractx.EventChunk, Content: chunk}) {
			return
		}
	}
}
