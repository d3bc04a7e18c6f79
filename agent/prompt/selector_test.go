package prompt

import (
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

func testSnapshot() contractx.BusinessSnapshot {
	return contractx.BusinessSnapshot{
		BusinessID:    "biz-1",
		BusinessName:  "Salón Aurora",
		Hours:         "Lun-Sáb 9:00-19:00",
		AssistantName: "Sofía",
		Services: []contractx.ServiceSummary{
			{ID: "svc-1", Name: "Corte", Price: 20000, DurationMin: 30},
		},
		Specialists: []contractx.SpecialistSummary{
			{ID: "sp-1", Name: "María"},
		},
		Now: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestSelectRendersSnapshot(t *testing.T) {
	t.Parallel()

	sel, err := NewSelector()
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	rendered, err := sel.Select(contractx.IntentBooking, testSnapshot())
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	for _, want := range []string{"Sofía", "Salón Aurora", "Corte", "$20000", "María", "2026-03-10", "AGENDAR"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestSelectEveryModelIntentHasSection(t *testing.T) {
	t.Parallel()

	sel, err := NewSelector()
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	intents := []contractx.Intent{
		contractx.IntentBooking,
		contractx.IntentInquiry,
		contractx.IntentAvailability,
		contractx.IntentReschedule,
		contractx.IntentCancel,
		contractx.IntentGeneral,
	}
	seen := make(map[string]contractx.Intent, len(intents))
	for _, intent := range intents {
		rendered, err := sel.Select(intent, testSnapshot())
		if err != nil {
			t.Fatalf("select %s: %v", intent, err)
		}
		if prev, dup := seen[rendered]; dup {
			t.Fatalf("intents %s and %s render identical prompts", prev, intent)
		}
		seen[rendered] = intent
	}
}

func TestSelectSessionEndRejected(t *testing.T) {
	t.Parallel()

	sel, err := NewSelector()
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}
	if _, err := sel.Select(contractx.IntentSessionEnd, testSnapshot()); err == nil {
		t.Fatal("SESSION_END must not produce a prompt")
	}
}

func TestRouterPromptListsAllIntents(t *testing.T) {
	t.Parallel()

	sel, err := NewSelector()
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}
	p := sel.RouterPrompt()
	for _, intent := range []string{"BOOKING", "INQUIRY", "AVAILABILITY", "RESCHEDULE", "CANCEL", "GENERAL", "SESSION_END"} {
		if !strings.Contains(p, intent) {
			t.Errorf("router prompt missing intent %s", intent)
		}
	}
}
