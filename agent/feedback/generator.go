// Package feedback produces the short status phrases streamed to callers
// while tools run. It generates content only; delivery timing belongs to the
// orchestrator.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// Long-wait stages. Past each threshold the message changes register.
const (
	StageWorkingAfter  = 45 * time.Second
	StagePatienceAfter = 60 * time.Second
	StageApologyAfter  = 90 * time.Second
)

var toolGerunds = map[string]string{
	"get_services":              "consultando los servicios disponibles",
	"get_specialists":           "buscando los especialistas",
	"get_available_slots":       "verificando la disponibilidad de horarios",
	"get_appointments_by_phone": "buscando tus citas registradas",
	"create_customer":           "registrando tus datos",
	"create_appointment":        "agendando tu cita",
	"cancel_appointment":        "cancelando tu cita",
	"reschedule_appointment":    "reprogramando tu cita",
}

var shortPhrases = map[string][]string{
	"get_services":              {"Un momento, reviso el catálogo...", "Déjame ver qué servicios tenemos..."},
	"get_specialists":           {"Reviso quién está disponible...", "Un segundo, busco al equipo..."},
	"get_available_slots":       {"Reviso la agenda...", "Déjame ver los horarios libres..."},
	"get_appointments_by_phone": {"Busco tus citas...", "Un momento, reviso tu historial..."},
	"create_customer":           {"Guardo tus datos...", "Un momento, te registro..."},
	"create_appointment":        {"Confirmo tu cita...", "Un momento, aseguro tu espacio..."},
	"cancel_appointment":        {"Proceso la cancelación...", "Un momento con eso..."},
	"reschedule_appointment":    {"Busco el nuevo horario...", "Un momento, muevo tu cita..."},
}

var stageFallbacks = map[string]string{
	"working":  "Sigo trabajando en tu solicitud, gracias por esperar.",
	"patience": "Esto está tomando más de lo normal, gracias por tu paciencia.",
	"apology":  "Lamento la demora, sigo con tu solicitud y ya casi termino.",
}

// Generator maps tool names and elapsed time to human-readable status text.
// The contextual model is optional: when present it personalizes long-wait
// messages, and any failure falls back to a canned phrase.
type Generator struct {
	contextual contractx.ChatModel
	pick       func(n int) int
}

type Option func(*Generator)

// WithContextualModel enables small-model long-wait messages.
func WithContextualModel(m contractx.ChatModel) Option {
	return func(g *Generator) {
		g.contextual = m
	}
}

// WithPicker overrides phrase selection, used by tests for determinism.
func WithPicker(pick func(n int) int) Option {
	return func(g *Generator) {
		if pick != nil {
			g.pick = pick
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		pick: func(n int) int {
			return int(time.Now().UnixNano()) % n
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Gerund returns the progress phrase for a tool, with a generic fallback for
// tools that gained no dedicated phrase yet.
func (g *Generator) Gerund(toolName string) string {
	if phrase, ok := toolGerunds[toolName]; ok {
		return phrase
	}
	return "procesando tu solicitud"
}

// Progress is the event body emitted when a tool starts. Nothing has elapsed
// yet at that point, so it carries one of the short canned phrases; the
// gerund-based messages take over on retries and long waits.
func (g *Generator) Progress(toolName string) contractx.FeedbackEvent {
	return contractx.FeedbackEvent{
		Type:     contractx.FeedbackProgress,
		Message:  g.ShortPhrase(toolName),
		ToolName: toolName,
	}
}

// Thinking is the event body emitted before the first model invocation.
func (g *Generator) Thinking() contractx.FeedbackEvent {
	return contractx.FeedbackEvent{
		Type:    contractx.FeedbackThinking,
		Message: "Déjame pensar...",
	}
}

// Waiting is the event body emitted between retry attempts.
func (g *Generator) Waiting(toolName string, elapsed time.Duration) contractx.FeedbackEvent {
	return contractx.FeedbackEvent{
		Type:      contractx.FeedbackWaiting,
		Message:   "Sigo " + g.Gerund(toolName) + ", un momento más...",
		ToolName:  toolName,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// ShortPhrase returns a canned phrase for quick tool runs.
func (g *Generator) ShortPhrase(toolName string) string {
	phrases, ok := shortPhrases[toolName]
	if !ok || len(phrases) == 0 {
		return "Un momento por favor..."
	}
	return phrases[g.pick(len(phrases))%len(phrases)]
}

// Stage returns the long-wait stage name for an elapsed duration, or "" when
// no threshold has been crossed yet.
func Stage(elapsed time.Duration) string {
	switch {
	case elapsed >= StageApologyAfter:
		return "apology"
	case elapsed >= StagePatienceAfter:
		return "patience"
	case elapsed >= StageWorkingAfter:
		return "working"
	default:
		return ""
	}
}

// LongWait produces the message for an elapsed duration past a threshold.
// With a contextual model configured it asks for a one-line personalized
// message; otherwise, or on any failure, the canned stage fallback is used.
func (g *Generator) LongWait(ctx context.Context, toolName string, elapsed time.Duration) contractx.FeedbackEvent {
	stage := Stage(elapsed)
	if stage == "" {
		return g.Waiting(toolName, elapsed)
	}

	message := stageFallbacks[stage]
	if g.contextual != nil {
		if generated, err := g.contextualMessage(ctx, toolName, stage, elapsed); err == nil && generated != "" {
			message = generated
		} else if err != nil {
			log.Debug().Err(err).Str("tool", toolName).Str("stage", stage).
				Msg("contextual feedback failed, using canned fallback")
		}
	}

	return contractx.FeedbackEvent{
		Type:      contractx.FeedbackWaiting,
		Message:   message,
		ToolName:  toolName,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

func (g *Generator) contextualMessage(ctx context.Context, toolName, stage string, elapsed time.Duration) (string, error) {
	prompt := fmt.Sprintf(
		"Estás %s y la operación lleva %d segundos (etapa: %s). "+
			"Escribe UNA sola frase corta en español para que el cliente sepa que sigues trabajando. "+
			"Sin comillas, sin emojis.",
		g.Gerund(toolName), int(elapsed.Seconds()), stage,
	)

	reply, err := g.contextual.Complete(ctx, []contractx.Message{
		{Role: contractx.RoleSystem, Content: "Eres un asistente de reservas amable y breve."},
		{Role: contractx.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}

	message := strings.TrimSpace(reply.Content)
	if message == "" {
		return "", fmt.Errorf("%w: empty contextual feedback", contractx.ErrSchemaViolation)
	}
	// Keep it to one line regardless of what the model returned.
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = strings.TrimSpace(message[:idx])
	}
	return message, nil
}
