package session

import (
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// Session is the unit of conversational continuity, keyed by an opaque
// identifier supplied by the caller. It holds at most one identified
// customer; the customer carries the appointment projections used to
// resolve "cancel it" / "reschedule it" follow-ups without re-prompting.
type Session struct {
	SessionID string              `json:"session_id"`
	Customer  *contractx.Customer `json:"customer,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// FirstAppointment returns the first stored appointment, if any. Follow-up
// requests like "reprográmala" resolve against it.
func (s *Session) FirstAppointment() (contractx.Appointment, bool) {
	if s == nil || s.Customer == nil || len(s.Customer.Appointments) == 0 {
		return contractx.Appointment{}, false
	}
	return s.Customer.Appointments[0], true
}

// FindAppointment looks an appointment up by id in the session projection.
func (s *Session) FindAppointment(appointmentID string) (contractx.Appointment, bool) {
	if s == nil || s.Customer == nil {
		return contractx.Appointment{}, false
	}
	for _, appt := range s.Customer.Appointments {
		if appt.AppointmentID == appointmentID {
			return appt, true
		}
	}
	return contractx.Appointment{}, false
}
