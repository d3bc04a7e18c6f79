package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

type fakeModel struct {
	content string
	err     error
	calls   int
}

func (f *fakeModel) Complete(ctx context.Context, msgs []contractx.Message, tools []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &contractx.ModelReply{Content: f.content}, nil
}

func TestGerundKnownAndUnknownTools(t *testing.T) {
	t.Parallel()

	g := New()
	if got := g.Gerund("get_available_slots"); got != "verificando la disponibilidad de horarios" {
		t.Fatalf("unexpected gerund: %s", got)
	}
	if got := g.Gerund("nonexistent_tool"); got != "procesando tu solicitud" {
		t.Fatalf("unknown tool must use generic gerund, got %s", got)
	}
}

func TestStageThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{10 * time.Second, ""},
		{44 * time.Second, ""},
		{45 * time.Second, "working"},
		{59 * time.Second, "working"},
		{60 * time.Second, "patience"},
		{89 * time.Second, "patience"},
		{90 * time.Second, "apology"},
		{5 * time.Minute, "apology"},
	}
	for _, tc := range cases {
		if got := Stage(tc.elapsed); got != tc.want {
			t.Errorf("Stage(%v) = %q, want %q", tc.elapsed, got, tc.want)
		}
	}
}

func TestShortPhraseDeterministic(t *testing.T) {
	t.Parallel()

	g := New(WithPicker(func(n int) int { return 0 }))
	first := g.ShortPhrase("get_services")
	if first == "" {
		t.Fatal("expected non-empty phrase")
	}
	if again := g.ShortPhrase("get_services"); again != first {
		t.Fatalf("picker override must be deterministic: %q vs %q", first, again)
	}
	if got := g.ShortPhrase("unknown"); got != "Un momento por favor..." {
		t.Fatalf("unknown tool must use generic phrase, got %q", got)
	}
}

func TestProgressCarriesShortPhrase(t *testing.T) {
	t.Parallel()

	g := New(WithPicker(func(n int) int { return 0 }))
	ev := g.Progress("get_available_slots")
	if ev.Type != contractx.FeedbackProgress {
		t.Fatalf("type = %s, want progress", ev.Type)
	}
	if ev.ToolName != "get_available_slots" {
		t.Fatalf("tool name = %s", ev.ToolName)
	}
	if ev.Message != g.ShortPhrase("get_available_slots") {
		t.Fatalf("progress message = %q, want the tool's short phrase", ev.Message)
	}
}

func TestLongWaitUsesContextualModel(t *testing.T) {
	t.Parallel()

	model := &fakeModel{content: "Ya casi tengo tus horarios listos.\nsegunda línea ignorada"}
	g := New(WithContextualModel(model))

	ev := g.LongWait(context.Background(), "get_available_slots", 65*time.Second)
	if ev.Type != contractx.FeedbackWaiting {
		t.Fatalf("unexpected type: %s", ev.Type)
	}
	if ev.Message != "Ya casi tengo tus horarios listos." {
		t.Fatalf("expected first line of model output, got %q", ev.Message)
	}
	if ev.ElapsedMs != 65000 {
		t.Fatalf("unexpected elapsed: %d", ev.ElapsedMs)
	}
	if model.calls != 1 {
		t.Fatalf("expected one model call, got %d", model.calls)
	}
}

func TestLongWaitFallsBackOnModelError(t *testing.T) {
	t.Parallel()

	g := New(WithContextualModel(&fakeModel{err: errors.New("boom")}))
	ev := g.LongWait(context.Background(), "get_available_slots", 95*time.Second)
	if !strings.Contains(ev.Message, "Lamento la demora") {
		t.Fatalf("expected apology fallback, got %q", ev.Message)
	}
}

func TestLongWaitWithoutModelUsesFallbacks(t *testing.T) {
	t.Parallel()

	g := New()
	ev := g.LongWait(context.Background(), "create_appointment", 46*time.Second)
	if ev.Message != stageFallbacks["working"] {
		t.Fatalf("expected working fallback, got %q", ev.Message)
	}
}

func TestLongWaitBelowThresholdIsPlainWaiting(t *testing.T) {
	t.Parallel()

	g := New()
	ev := g.LongWait(context.Background(), "get_services", 3*time.Second)
	if ev.Type != contractx.FeedbackWaiting {
		t.Fatalf("unexpected type: %s", ev.Type)
	}
	if !strings.Contains(ev.Message, "consultando los servicios") {
		t.Fatalf("expected tool gerund in message, got %q", ev.Message)
	}
}
