// Package recovery classifies tool failures and turns them into retry
// decisions and model-facing recovery directives.
package recovery

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

const maxRetries = 2

// Ordered pattern families. The first family with a match wins; unmatched
// messages default to temporary so a one-off glitch still gets retried.
var (
	temporaryPatterns = []string{
		"timeout", "timed out", "deadline exceeded",
		"connection refused", "connection reset", "network",
		"rate limit", "too many requests", "429",
		"service unavailable", "503", "temporarily",
		"econnrefused", "etimedout",
	}

	userInputPatterns = []string{
		"not found", "no encontrado", "no encontrada", "no existe",
		"invalid id", "id inválido", "id invalido",
		"no availability", "no available", "sin disponibilidad",
		"no hay horarios", "no slots", "fuera de horario",
		"already cancelled", "ya cancelada", "ya cancelado",
		"invalid date", "fecha inválida", "fecha invalida",
		"invalid phone", "teléfono inválido", "telefono invalido",
	}

	permanentPatterns = []string{
		"constraint", "violates", "duplicate key",
		"permission denied", "forbidden", "unauthorized",
		"not allowed", "denegado",
	}
)

// Classify maps a failure message to the error taxonomy.
func Classify(message string) contractx.ErrorType {
	lower := strings.ToLower(message)

	for _, p := range temporaryPatterns {
		if strings.Contains(lower, p) {
			return contractx.ErrorTemporary
		}
	}
	for _, p := range userInputPatterns {
		if strings.Contains(lower, p) {
			return contractx.ErrorUserInput
		}
	}
	for _, p := range permanentPatterns {
		if strings.Contains(lower, p) {
			return contractx.ErrorPermanent
		}
	}
	return contractx.ErrorTemporary
}

// NewErrorInfo builds the immutable record for one failing attempt.
func NewErrorInfo(toolName, message string, args map[string]any, now time.Time) contractx.ErrorInfo {
	info := contractx.ErrorInfo{
		ToolName:     toolName,
		ErrorMessage: message,
		ErrorType:    Classify(message),
		Timestamp:    now.UTC(),
		OriginalArgs: args,
	}
	info.SuggestedAction = SuggestAction(info)
	return info
}

// InfoFromOutcome builds the attempt record for a failed tool outcome,
// trusting the handler's own error kind when it set one.
func InfoFromOutcome(toolName string, outcome contractx.ToolOutcome, args map[string]any, now time.Time) contractx.ErrorInfo {
	info := contractx.ErrorInfo{
		ToolName:     toolName,
		ErrorMessage: outcome.Message,
		ErrorType:    outcome.ErrorKind,
		Timestamp:    now.UTC(),
		OriginalArgs: args,
	}
	if info.ErrorType == "" {
		info.ErrorType = Classify(outcome.Message)
	}
	info.SuggestedAction = SuggestAction(info)
	return info
}

// ShouldRetry: only temporary failures, at most two retries per (tool, args).
func ShouldRetry(info contractx.ErrorInfo, attempt int) bool {
	return info.ErrorType == contractx.ErrorTemporary && attempt < maxRetries
}

// Backoff grows linearly: 1s before the first retry, 2s before the second.
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * time.Second
}

// SuggestAction maps user_input errors to a recovery hint based on the tool
// that failed and the failure text. Non-user_input errors carry no action.
func SuggestAction(info contractx.ErrorInfo) contractx.SuggestedAction {
	if info.ErrorType != contractx.ErrorUserInput {
		return ""
	}

	lower := strings.ToLower(info.ErrorMessage)
	switch info.ToolName {
	case "get_appointments_by_phone":
		return contractx.ActionAskCreateNew
	case "get_available_slots":
		return contractx.ActionAskDifferentDate
	case "get_specialists":
		return contractx.ActionShowAllSpecialists
	case "create_appointment", "reschedule_appointment":
		if strings.Contains(lower, "disponibilidad") || strings.Contains(lower, "availability") ||
			strings.Contains(lower, "horario") || strings.Contains(lower, "slot") {
			return contractx.ActionAskDifferentDate
		}
		return contractx.ActionAskDifferentOption
	case "cancel_appointment":
		return contractx.ActionAskDifferentOption
	default:
		return contractx.ActionAskClarification
	}
}

// actionDirectives is the model-facing second line of the error directive.
var actionDirectives = map[contractx.SuggestedAction]string{
	contractx.ActionAskCreateNew:       "Pregunta al cliente si desea registrarse como cliente nuevo.",
	contractx.ActionAskDifferentDate:   "Pide al cliente una fecha u horario diferente.",
	contractx.ActionShowAllSpecialists: "Muestra todos los especialistas disponibles y deja que el cliente elija.",
	contractx.ActionAskDifferentOption: "Ofrece al cliente otras opciones disponibles.",
	contractx.ActionAskClarification:   "Pide al cliente que aclare su solicitud.",
}

// FormatForAgent renders the two-line directive fed back to the model as the
// tool result, so the next model message is grounded in the real outcome.
func FormatForAgent(info contractx.ErrorInfo) string {
	directive, ok := actionDirectives[info.SuggestedAction]
	if !ok {
		switch info.ErrorType {
		case contractx.ErrorPermanent:
			directive = "Discúlpate con el cliente e indícale que el personal fue notificado."
		default:
			directive = "Informa al cliente que hubo un problema técnico y que se volverá a intentar."
		}
	}
	return fmt.Sprintf("[ERROR] %s: %s\n[ACCIÓN] %s", info.ToolName, info.ErrorMessage, directive)
}
