package contract

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message of the conversation as supplied by the caller.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Intent is the classified purpose of the current turn.
type Intent string

const (
	IntentBooking      Intent = "BOOKING"
	IntentInquiry      Intent = "INQUIRY"
	IntentAvailability Intent = "AVAILABILITY"
	IntentReschedule   Intent = "RESCHEDULE"
	IntentCancel       Intent = "CANCEL"
	IntentGeneral      Intent = "GENERAL"
	IntentSessionEnd   Intent = "SESSION_END"
)

// ParseIntent maps a raw classifier string onto the closed intent set.
// Anything that does not match falls back to GENERAL so callers never
// see an out-of-enum value.
func ParseIntent(raw string) Intent {
	switch Intent(strings.ToUpper(strings.TrimSpace(raw))) {
	case IntentBooking:
		return IntentBooking
	case IntentInquiry:
		return IntentInquiry
	case IntentAvailability:
		return IntentAvailability
	case IntentReschedule:
		return IntentReschedule
	case IntentCancel:
		return IntentCancel
	case IntentSessionEnd:
		return IntentSessionEnd
	default:
		return IntentGeneral
	}
}

// IntentResult is the router output. Confidence is advisory only; nothing
// branches on it besides logging.
type IntentResult struct {
	Intent        Intent            `json:"intent"`
	Confidence    float64           `json:"confidence"`
	ExtractedInfo map[string]string `json:"extracted_info,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolOutcome is the explicit result of a tool execution. The human-readable
// message is what gets fed back to the model; AgentText preserves the
// "[ERROR] ..." wire convention for failure outcomes.
type ToolOutcome struct {
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	ErrorKind ErrorType `json:"error_kind,omitempty"`
}

const errorMarker = "[ERROR]"

func (o ToolOutcome) AgentText() string {
	if o.OK {
		return o.Message
	}
	if strings.HasPrefix(o.Message, errorMarker) {
		return o.Message
	}
	return errorMarker + " " + o.Message
}

func SuccessOutcome(message string) ToolOutcome {
	return ToolOutcome{OK: true, Message: message}
}

func FailureOutcome(kind ErrorType, message string) ToolOutcome {
	return ToolOutcome{OK: false, Message: message, ErrorKind: kind}
}

// ErrorType categorizes a tool failure for retry decisions.
type ErrorType string

const (
	ErrorTemporary ErrorType = "temporary"
	ErrorUserInput ErrorType = "user_input"
	ErrorPermanent ErrorType = "permanent"
)

// SuggestedAction tells the model how to recover from a user_input failure.
type SuggestedAction string

const (
	ActionAskCreateNew       SuggestedAction = "ask_create_new"
	ActionAskDifferentDate   SuggestedAction = "ask_different_date"
	ActionShowAllSpecialists SuggestedAction = "show_all_specialists"
	ActionAskDifferentOption SuggestedAction = "ask_different_option"
	ActionAskClarification   SuggestedAction = "ask_clarification"
)

// ErrorInfo captures one failing tool attempt. Instances are never mutated;
// a later attempt produces a new one.
type ErrorInfo struct {
	ToolName        string          `json:"tool_name"`
	ErrorMessage    string          `json:"error_message"`
	ErrorType       ErrorType       `json:"error_type"`
	Timestamp       time.Time       `json:"timestamp"`
	OriginalArgs    map[string]any  `json:"original_args,omitempty"`
	SuggestedAction SuggestedAction `json:"suggested_action,omitempty"`
}

// Customer is the session view of an identified customer.
type Customer struct {
	ID            string        `json:"id"`
	UserProfileID string        `json:"user_profile_id,omitempty"`
	Phone         string        `json:"phone"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email,omitempty"`
	Appointments  []Appointment `json:"appointments,omitempty"`
}

// Appointment is a denormalized projection used only to carry identifiers
// across turns; the booking database is the source of truth.
type Appointment struct {
	AppointmentID  string `json:"appointment_id"`
	ServiceID      string `json:"service_id"`
	ServiceName    string `json:"service_name"`
	SpecialistID   string `json:"specialist_id"`
	SpecialistName string `json:"specialist_name"`
	StartTime      string `json:"start_time"`
	Status         string `json:"status"`
}

// Appointment lifecycle states, shared by the tools and the booking database.
const (
	StatusConfirmed   = "confirmed"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
)

/* ------------------------------ Stream events ----------------------------- */

type EventType string

const (
	EventChunk      EventType = "chunk"
	EventFeedback   EventType = "feedback"
	EventToolStart  EventType = "tool_start"
	EventToolEnd    EventType = "tool_end"
	EventIntent     EventType = "intent"
	EventSessionEnd EventType = "session_end"
	EventError      EventType = "error"
)

type FeedbackType string

const (
	FeedbackThinking FeedbackType = "thinking"
	FeedbackProgress FeedbackType = "progress"
	FeedbackWaiting  FeedbackType = "waiting"
)

type FeedbackEvent struct {
	Type      FeedbackType `json:"type"`
	Message   string       `json:"message"`
	ToolName  string       `json:"tool_name,omitempty"`
	ElapsedMs int64        `json:"elapsed_ms,omitempty"`
}

// StreamEvent is the ordered, consume-once event union exposed to callers.
// Type selects which of the remaining fields are meaningful.
type StreamEvent struct {
	Type     EventType      `json:"type"`
	Content  string         `json:"content,omitempty"`
	Feedback *FeedbackEvent `json:"event,omitempty"`
	ToolName string         `json:"tool_name,omitempty"`
	Success  bool           `json:"success,omitempty"`
	Intent   Intent         `json:"intent,omitempty"`
	Message  string         `json:"message,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Error    string         `json:"error,omitempty"`
}

/* --------------------------- Business snapshot ---------------------------- */

// ServiceSummary feeds prompt rendering and the get_services tool.
type ServiceSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"duration_min"`
}

type SpecialistSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Services []string `json:"services,omitempty"`
}

// BusinessSnapshot parameterizes the per-intent prompt templates.
type BusinessSnapshot struct {
	BusinessID    string              `json:"business_id"`
	BusinessName  string              `json:"business_name"`
	Hours         string              `json:"hours"`
	AssistantName string              `json:"assistant_name"`
	Services      []ServiceSummary    `json:"services"`
	Specialists   []SpecialistSummary `json:"specialists"`
	Now           time.Time           `json:"now"`
}

/* ------------------------------ Model boundary ---------------------------- */

// Message is a model-facing chat message, including assistant tool calls and
// tool results (ToolCallID set for role=tool).
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition is the schema of one callable tool as exposed to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ModelReply is what one completion call returns: text content plus any
// requested tool calls.
type ModelReply struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Response is the non-streamed provider result.
type Response struct {
	Content string `json:"content"`
	Intent  Intent `json:"intent,omitempty"`
}
