// Package tool holds the fixed set of callable operations against the
// booking domain. Each tool takes typed args decoded from the model's raw
// arguments and returns an explicit outcome whose text is fed straight back
// to the model.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	recoveryx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/recovery"
	sessionx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/session"
)

const (
	ToolGetServices            = "get_services"
	ToolGetSpecialists         = "get_specialists"
	ToolGetAvailableSlots      = "get_available_slots"
	ToolGetAppointmentsByPhone = "get_appointments_by_phone"
	ToolCreateCustomer         = "create_customer"
	ToolCreateAppointment      = "create_appointment"
	ToolCancelAppointment      = "cancel_appointment"
	ToolRescheduleAppointment  = "reschedule_appointment"
)

type handler func(ctx context.Context, args map[string]any) contractx.ToolOutcome

type registeredTool struct {
	definition contractx.ToolDefinition
	run        handler
}

// Registry is scoped to one (business, session) pair, matching the provider
// factory cache key.
type Registry struct {
	repo       contractx.BookingRepository
	store      sessionx.Store
	businessID string
	sessionID  string

	tools map[string]registeredTool
	order []string
}

func NewRegistry(repo contractx.BookingRepository, store sessionx.Store, businessID, sessionID string) *Registry {
	r := &Registry{
		repo:       repo,
		store:      store,
		businessID: businessID,
		sessionID:  sessionID,
		tools:      make(map[string]registeredTool, 8),
	}

	r.register(serviceListDefinition(), r.getServices)
	r.register(specialistListDefinition(), r.getSpecialists)
	r.register(availableSlotsDefinition(), r.getAvailableSlots)
	r.register(appointmentsByPhoneDefinition(), r.getAppointmentsByPhone)
	r.register(createCustomerDefinition(), r.createCustomer)
	r.register(createAppointmentDefinition(), r.createAppointment)
	r.register(cancelAppointmentDefinition(), r.cancelAppointment)
	r.register(rescheduleAppointmentDefinition(), r.rescheduleAppointment)

	return r
}

func (r *Registry) register(def contractx.ToolDefinition, run handler) {
	r.tools[def.Name] = registeredTool{definition: def, run: run}
	r.order = append(r.order, def.Name)
}

// Definitions returns every tool schema in registration order. All
// model-reaching intents expose the full set: a router misclassification must
// not silently block a valid action.
func (r *Registry) Definitions() []contractx.ToolDefinition {
	defs := make([]contractx.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Has reports whether name is a registered tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Execute runs one tool. Tools never let a panic or Go error escape: anything
// unexpected becomes an [ERROR] outcome so the loop can feed it to the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (outcome contractx.ToolOutcome) {
	entry, ok := r.tools[name]
	if !ok {
		return contractx.FailureOutcome(contractx.ErrorPermanent,
			fmt.Sprintf("herramienta desconocida: %s", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("tool", name).Interface("panic", rec).Msg("tool handler panicked")
			outcome = contractx.FailureOutcome(contractx.ErrorTemporary,
				fmt.Sprintf("fallo inesperado en %s: %v", name, rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return contractx.FailureOutcome(contractx.ErrorTemporary,
			fmt.Sprintf("timeout: la operación %s fue cancelada: %v", name, err))
	}

	outcome = entry.run(ctx, args)
	return outcome
}

// repoFailure converts a repository error into a classified failure outcome.
func repoFailure(err error) contractx.ToolOutcome {
	message := err.Error()
	return contractx.FailureOutcome(recoveryx.Classify(message), message)
}

// decodeArgs round-trips the raw args map through JSON into a typed struct,
// so malformed values surface as a user_input outcome rather than a panic.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("argumentos inválidos: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("argumentos inválidos: %w", err)
	}
	return out, nil
}
