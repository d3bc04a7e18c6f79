package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

const dateLayout = "2006-01-02"

/* ------------------------------- definitions ------------------------------ */

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func serviceListDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolGetServices,
		Description: "Lista los servicios del negocio con precio y duración.",
		Parameters:  objectSchema(map[string]any{}),
	}
}

func specialistListDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolGetSpecialists,
		Description: "Lista los especialistas del negocio, opcionalmente filtrados por servicio.",
		Parameters: objectSchema(map[string]any{
			"service_id": map[string]any{
				"type":        "string",
				"description": "ID del servicio para filtrar (opcional)",
			},
		}),
	}
}

func availableSlotsDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolGetAvailableSlots,
		Description: "Consulta los horarios disponibles para un servicio en una fecha (YYYY-MM-DD).",
		Parameters: objectSchema(map[string]any{
			"service_id": map[string]any{
				"type":        "string",
				"description": "ID del servicio",
			},
			"specialist_id": map[string]any{
				"type":        "string",
				"description": "ID del especialista (opcional)",
			},
			"date": map[string]any{
				"type":        "string",
				"description": "Fecha en formato YYYY-MM-DD",
			},
		}, "service_id", "date"),
	}
}

func appointmentsByPhoneDefinition() contractx.ToolDefinition {
	return contractx.ToolDefinition{
		Name:        ToolGetAppointmentsByPhone,
		Description: "Busca al cliente y sus citas por número de teléfono. Úsala antes de cancelar o reprogramar.",
		Parameters: objectSchema(map[string]any{
			"phone": map[string]any{
				"type":        "string",
				"description": "Teléfono del cliente",
			},
		}, "phone"),
	}
}

/* -------------------------------- handlers -------------------------------- */

func (r *Registry) getServices(ctx context.Context, _ map[string]any) contractx.ToolOutcome {
	services, err := r.repo.ListServices(ctx, r.businessID)
	if err != nil {
		return repoFailure(err)
	}
	if len(services) == 0 {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"no encontrado: el negocio no tiene servicios registrados")
	}

	var b strings.Builder
	b.WriteString("Servicios disponibles:\n")
	for _, svc := range services {
		fmt.Fprintf(&b, "- %s (id: %s): $%.0f, %d min\n", svc.Name, svc.ID, svc.Price, svc.DurationMin)
	}
	return contractx.SuccessOutcome(strings.TrimRight(b.String(), "\n"))
}

type specialistArgs struct {
	ServiceID string `json:"service_id"`
}

func (r *Registry) getSpecialists(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[specialistArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}

	specialists, err := r.repo.ListSpecialists(ctx, r.businessID, strings.TrimSpace(in.ServiceID))
	if err != nil {
		return repoFailure(err)
	}
	if len(specialists) == 0 {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			"no encontrado: no hay especialistas para ese servicio")
	}

	var b strings.Builder
	b.WriteString("Especialistas:\n")
	for _, sp := range specialists {
		fmt.Fprintf(&b, "- %s (id: %s)", sp.Name, sp.ID)
		if len(sp.Services) > 0 {
			fmt.Fprintf(&b, " — %s", strings.Join(sp.Services, ", "))
		}
		b.WriteString("\n")
	}
	return contractx.SuccessOutcome(strings.TrimRight(b.String(), "\n"))
}

type slotArgs struct {
	ServiceID    string `json:"service_id"`
	SpecialistID string `json:"specialist_id"`
	Date         string `json:"date"`
}

func (r *Registry) getAvailableSlots(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[slotArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}
	if strings.TrimSpace(in.ServiceID) == "" {
		return contractx.FailureOutcome(contractx.ErrorUserInput, "no encontrado: falta el id del servicio")
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(in.Date)); err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			fmt.Sprintf("fecha inválida: %q, usa el formato YYYY-MM-DD", in.Date))
	}

	slots, err := r.repo.AvailableSlots(ctx, r.businessID, in.ServiceID, strings.TrimSpace(in.SpecialistID), in.Date)
	if err != nil {
		return repoFailure(err)
	}
	if len(slots) == 0 {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			fmt.Sprintf("sin disponibilidad: no hay horarios disponibles para %s", in.Date))
	}

	return contractx.SuccessOutcome(fmt.Sprintf(
		"Horarios disponibles para %s: %s", in.Date, strings.Join(slots, ", ")))
}

type phoneArgs struct {
	Phone string `json:"phone"`
}

// getAppointmentsByPhone is the identification tool: besides listing the
// customer's appointments it populates the session store, which is what later
// lets cancel/reschedule resolve "esa cita" without re-asking for ids.
func (r *Registry) getAppointmentsByPhone(ctx context.Context, args map[string]any) contractx.ToolOutcome {
	in, err := decodeArgs[phoneArgs](args)
	if err != nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput, err.Error())
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return contractx.FailureOutcome(contractx.ErrorUserInput, "teléfono inválido: el teléfono es requerido")
	}

	customer, err := r.repo.FindCustomerByPhone(ctx, r.businessID, phone)
	if err != nil {
		return repoFailure(err)
	}
	if customer == nil {
		return contractx.FailureOutcome(contractx.ErrorUserInput,
			fmt.Sprintf("no encontrado: no hay cliente registrado con el teléfono %s", phone))
	}

	if err := r.store.SetCustomer(ctx, r.sessionID, customer); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("failed to cache identified customer")
	}

	if len(customer.Appointments) == 0 {
		return contractx.SuccessOutcome(fmt.Sprintf(
			"Cliente %s %s identificado. No tiene citas registradas.",
			customer.FirstName, customer.LastName))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cliente %s %s identificado. Citas:\n", customer.FirstName, customer.LastName)
	for i, appt := range customer.Appointments {
		fmt.Fprintf(&b, "%d. %s con %s el %s (estado: %s, id: %s)\n",
			i+1, appt.ServiceName, appt.SpecialistName, appt.StartTime, appt.Status, appt.AppointmentID)
	}
	return contractx.SuccessOutcome(strings.TrimRight(b.String(), "\n"))
}
