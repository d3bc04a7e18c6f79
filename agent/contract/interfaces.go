package contract

import "context"

// ChatModel is the black-box completion boundary: one call with the full
// message list and the exposed tools, one reply with optional tool calls.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*ModelReply, error)
}

// BookingRepository is the boundary to the external booking database. All
// methods are simple CRUD; business rules beyond the tool contracts live on
// the other side.
type BookingRepository interface {
	ListServices(ctx context.Context, businessID string) ([]ServiceSummary, error)
	ListSpecialists(ctx context.Context, businessID, serviceID string) ([]SpecialistSummary, error)
	AvailableSlots(ctx context.Context, businessID, serviceID, specialistID, date string) ([]string, error)
	FindCustomerByPhone(ctx context.Context, businessID, phone string) (*Customer, error)
	CreateCustomer(ctx context.Context, businessID string, customer Customer) (*Customer, error)
	CreateAppointment(ctx context.Context, businessID string, appt Appointment, customerID string) (*Appointment, error)
	CancelAppointment(ctx context.Context, businessID, appointmentID string) error
	RescheduleAppointment(ctx context.Context, businessID, appointmentID, newStart string) (*Appointment, error)
	Snapshot(ctx context.Context, businessID string) (*BusinessSnapshot, error)
}

// Provider is the interchangeable model-calling strategy. Implementations
// must honor the stream event contract regardless of backend.
type Provider interface {
	StreamResponse(ctx context.Context, turns []Turn, opts ResponseOptions) (<-chan StreamEvent, error)
	InvokeResponse(ctx context.Context, turns []Turn, opts ResponseOptions) (*Response, error)
	CloseSession(ctx context.Context) error
}

// ResponseOptions carries per-call knobs a caller may tune.
type ResponseOptions struct {
	// MaxLoops overrides the orchestrator loop bound when > 0.
	MaxLoops int
}
