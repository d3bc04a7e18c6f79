package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

func createCustomerDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolCreateCustomer,
		Description: "Registra un cliente nuevo con teléfono, nombre y apellido.",
		Parameters: objectSchema(map[string]any{
			"phone": map[string]any{
				"type":        "string",
				"description": "Teléfono del cliente",
			},
			"first_name": map[string]any{
				"type":        "string",
				"description": "Nombre",
			},
			"last_name": map[string]any{
				"type":        "string",
				"description": "Apellido",
			},
			"email": map[string]any{
				"type":        "string",
				"description": "Correo electrónico (opcional)",
			},
		}, "phone", "first_name", "last_name"),
	}
}

func createAppointmentDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolCreateAppointment,
		Description: "Crea una cita para el cliente identificado en la sesión.",
		Parameters: objectSchema(map[string]any{
			"service_id": map[string]any{
				"type":        "string",
				"description": "ID del servicio",
			},
			"specialist_id": map[string]any{
				"type":        "string",
				"description": "ID del especialista",
			},
			"start_time": map[string]any{
				"type":        "string",
				"description": "Fecha y hora de inicio, p. ej. 2026-03-15 10:00",
			},
		}, "service_id", "specialist_id", "start_time"),
	}
}

func cancelAppointmentDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolCancelAppointment,
		Description: "Cancela una cita previamente identificada con get_appointments_by_phone.",
		Parameters: objectSchema(map[string]any{
			"appointment_id": map[string]any{
				"type":        "string",
				"description": "ID de la cita; si se omite se usa la primera cita identificada",
			},
		}),
	}
}

func rescheduleAppointmentDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolRescheduleAppointment,
		Description: "Reprograma una cita previamente identificada con get_appointments_by_phone.",
		Parameters: objectSchema(map[string]any{
			"appointment_id": map[string]any{
				"type":        "string",
				"description": "ID de la cita; si se omite se usa la primera cita identificada",
			},
			"new_start_time": map[string]any{
				"type":        "string",
				"description": "Nueva fecha y hora de inicio",
			},
		}, "new_start_time"),
	}
}

/* -------------------------------- handlers -------------------------------- */

type createCustomerArgs struct {
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (r *Registry) createCustomer(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[createCustomerArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}
	if strings.TrimSpace(in.Phone) == "" || strings.TrimSpace(in.FirstName) == "" {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"teléfono inválido: teléfono y nombre son requeridos")
	}

	created, err := r.repo.CreateCustomer(ctx, r.businessID, contractx.Customer{
		Phone:     strings.TrimSpace(in.Phone),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
	})
	if err != nil {
		return repoFailure(err)
	}

	if err := r.store.SetCustomer(ctx, r.sessionID, created); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to cache created customer")
	}

	return contractx.SuccessOutcome(fmt.Sprintf(
		"Cliente %s %s registrado con id %s.", created.FirstName, created.LastName, created.ID))
}

type createAppointmentArgs struct {
	ServiceID    string `json:"service_id"`
	SpecialistID string `json:"specialist_id"`
	StartTime    string `json:"start_time"`
}

func (r *Registry) createAppointment(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[createAppointmentArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}
	if strings.TrimSpace(in.ServiceID) == "" || strings.TrimSpace(in.StartTime) == "" {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"no encontrado: faltan el servicio o la hora de inicio")
	}

	customer, err := r.store.GetCustomer(ctx, r.sessionID)
	if err != nil {
		return repoFailure(err)
	}
	if customer == nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"no encontrado: no hay cliente identificado en esta sesión, primero identifícalo por teléfono o regístralo")
	}

	created, err := r.repo.CreateAppointment(ctx, r.businessID, contractx.Appointment{
		ServiceID:    strings.TrimSpace(in.ServiceID),
		SpecialistID: strings.TrimSpace(in.SpecialistID),
		StartTime:    strings.TrimSpace(in.StartTime),
		Status:       contractx.StatusConfirmed,
	}, customer.ID)
	if err != nil {
		return repoFailure(err)
	}

	// Append to the cached list so follow-up turns can refer to the new cita.
	customer.Appointments = append(customer.Appointments, *created)
	if err := r.store.SetCustomer(ctx, r.sessionID, customer); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to cache new appointment")
	}

	return contractx.SuccessOutcome(fmt.Sprintf(
		"Cita creada: %s con %s el %s (id: %s).",
		created.ServiceName, created.SpecialistName, created.StartTime, created.AppointmentID))
}

type cancelArgs struct {
	AppointmentID string `json:"appointment_id"`
}

func (r *Registry) cancelAppointment(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[cancelArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}

	customer, appt, outcome := r.identifiedAppointment(ctx, in.AppointmentID)
	if !outcome.OK {
		return outcome
	}

	if err := r.repo.CancelAppointment(ctx, r.businessID, appt.AppointmentID); err != nil {
		return repoFailure(err)
	}

	r.updateCachedAppointment(ctx, customer, appt.AppointmentID, func(a *contractx.Appointment) {
		a.Status = contractx.StatusCancelled
	})

	return contractx.SuccessOutcome(fmt.Sprintf(
		"Cita %s (%s el %s) cancelada correctamente.",
		appt.AppointmentID, appt.ServiceName, appt.StartTime))
}

type rescheduleArgs struct {
	AppointmentID string `json:"appointment_id"`
	NewStartTime  string `json:"new_start_time"`
}

func (r *Registry) rescheduleAppointment(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[rescheduleArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}
	if strings.TrimSpace(in.NewStartTime) == "" {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"fecha inválida: falta la nueva fecha y hora")
	}

	customer, appt, outcome := r.identifiedAppointment(ctx, in.AppointmentID)
	if !outcome.OK {
		return outcome
	}

	updated, err := r.repo.RescheduleAppointment(ctx, r.businessID, appt.AppointmentID, strings.TrimSpace(in.NewStartTime))
	if err != nil {
		return repoFailure(err)
	}

	r.updateCachedAppointment(ctx, customer, appt.AppointmentID, func(a *contractx.Appointment) {
		a.StartTime = updated.StartTime
		a.Status = updated.Status
	})

	return contractx.SuccessOutcome(fmt.Sprintf(
		"Cita %s reprogramada para %s.", appt.AppointmentID, updated.StartTime))
}

// identifiedAppointment enforces the precondition shared by cancel and
// reschedule: a customer with at least one appointment must already be in the
// session (populated by get_appointments_by_phone). Without it the tool
// reports failure and touches nothing external.
func (r *Registry) identifiedAppointment(ctx context.Context, appointmentID string) (*contractx.Customer, contractx.Appointment, contractx.ToolOutcome) {
	sess, err := r.store.Get(ctx, r.sessionID)
	if err != nil {
		return nil, contractx.Appointment{}, repoFailure(err)
	}

	first, ok := sess.FirstAppointment()
	if !ok {
		return nil, contractx.Appointment{}, contractx.FailureOutcome(contractx.ErrorUserInput,
			"no encontrado: no hay citas identificadas en esta sesión, primero busca las citas con get_appointments_by_phone")
	}

	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return sess.Customer, first, contractx.ToolOutcome{OK: true}
	}

	appt, ok := sess.FindAppointment(appointmentID)
	if !ok {
		return nil, contractx.Appointment{}, contractx.FailureOutcome(contractx.ErrorUserInput,
			fmt.Sprintf("no encontrado: la cita %s no está entre las citas identificadas", appointmentID))
	}
	return sess.Customer, appt, contractx.ToolOutcome{OK: true}
}

func (r *Registry) updateCachedAppointment(ctx context.Context, customer *contractx.Customer, appointmentID string, mutate func(*contractx.Appointment)) {
	for i := range customer.Appointments {
		if customer.Appointments[i].AppointmentID == appointmentID {
			mutate(&customer.Appointments[i])
			break
		}
	}
	if err := r.store.SetCustomer(ctx, r.sessionID, customer); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to update cached appointments")
	}
}
