package prompt

import (
	"fmt"
	"strings"
	"text/template"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// Selector maps an intent to a rendered system prompt. Every model-reaching
// intent exposes the full tool set: misrouting is cheaper to absorb than a
// toolset that silently blocks a valid action.
type Selector struct {
	prompts  PromptSet
	baseTmpl *template.Template
}

func NewSelector() (*Selector, error) {
	prompts := LoadPromptSet()
	if prompts.Base == "" || prompts.General == "" {
		return nil, contractx.ErrPromptMissing
	}

	baseTmpl, err := template.New("base").Parse(prompts.Base)
	if err != nil {
		return nil, fmt.Errorf("parse base prompt: %w", err)
	}

	return &Selector{
		prompts:  prompts,
		baseTmpl: baseTmpl,
	}, nil
}

// RouterPrompt is the classification system prompt; it takes no snapshot.
func (s *Selector) RouterPrompt() string {
	return s.prompts.Router
}

// Select renders the system prompt for an intent against the business
// snapshot. SESSION_END never reaches the model and has no prompt.
func (s *Selector) Select(intent contractx.Intent, snapshot contractx.BusinessSnapshot) (string, error) {
	if intent == contractx.IntentSessionEnd {
		return "", fmt.Errorf("%w: SESSION_END bypasses the model", contractx.ErrValidation)
	}

	var rendered strings.Builder
	if err := s.baseTmpl.Execute(&rendered, snapshot); err != nil {
		return "", fmt.Errorf("render base prompt: %w", err)
	}

	rendered.WriteString("\n\n")
	rendered.WriteString(s.intentSection(intent))
	return rendered.String(), nil
}

func (s *Selector) intentSection(intent contractx.Intent) string {
	switch intent {
	case contractx.IntentBooking:
		return s.prompts.Booking
	case contractx.IntentInquiry:
		return s.prompts.Inquiry
	case contractx.IntentAvailability:
		return s.prompts.Availability
	case contractx.IntentReschedule:
		return s.prompts.Reschedule
	case contractx.IntentCancel:
		return s.prompts.Cancel
	default:
		return s.prompts.General
	}
}
