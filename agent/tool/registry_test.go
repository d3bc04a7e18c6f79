package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	recoveryx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/recovery"
	sessionx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/session"
)

type fakeRepo struct {
	services    []contractx.ServiceSummary
	specialists []contractx.SpecialistSummary
	slots       []string
	slotsErr    error
	customer    *contractx.Customer
	findErr     error

	createdCustomer  *contractx.Customer
	createdAppt      *contractx.Appointment
	cancelErr        error
	cancelCalls      int
	rescheduleCalls  int
	rescheduledAppt  *contractx.Appointment
	createApptCalls  int
	lastCancelledID  string
	lastRescheduleID string
}

func (f *fakeRepo) ListServices(ctx context.Context, businessID string) ([]contractx.ServiceSummary, error) {
	return f.services, nil
}

func (f *fakeRepo) ListSpecialists(ctx context.Context, businessID, serviceID string) ([]contractx.SpecialistSummary, error) {
	return f.specialists, nil
}

func (f *fakeRepo) AvailableSlots(ctx context.Context, businessID, serviceID, specialistID, date string) ([]string, error) {
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots, nil
}

func (f *fakeRepo) FindCustomerByPhone(ctx context.Context, businessID, phone string) (*contractx.Customer, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.customer, nil
}

func (f *fakeRepo) CreateCustomer(ctx context.Context, businessID string, customer contractx.Customer) (*contractx.Customer, error) {
	customer.ID = "c-new"
	f.createdCustomer = &customer
	return &customer, nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, businessID string, appt contractx.Appointment, customerID string) (*contractx.Appointment, error) {
	f.createApptCalls++
	appt.AppointmentID = "a-new"
	appt.ServiceName = "Corte"
	appt.SpecialistName = "María"
	f.createdAppt = &appt
	return &appt, nil
}

func (f *fakeRepo) CancelAppointment(ctx context.Context, businessID, appointmentID string) error {
	f.cancelCalls++
	f.lastCancelledID = appointmentID
	return f.cancelErr
}

func (f *fakeRepo) RescheduleAppointment(ctx context.Context, businessID, appointmentID, newStart string) (*contractx.Appointment, error) {
	f.rescheduleCalls++
	f.lastRescheduleID = appointmentID
	if f.rescheduledAppt != nil {
		return f.rescheduledAppt, nil
	}
	return &contractx.Appointment{AppointmentID: appointmentID, StartTime: newStart, Status: "rescheduled"}, nil
}

func (f *fakeRepo) Snapshot(ctx context.Context, businessID string) (*contractx.BusinessSnapshot, error) {
	return &contractx.BusinessSnapshot{BusinessID: businessID}, nil
}

func newTestRegistry(repo *fakeRepo) (*Registry, sessionx.Store) {
	store := sessionx.NewMemoryStore()
	return NewRegistry(repo, store, "biz-1", "sess-1"), store
}

func TestDefinitionsFullSet(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{})
	defs := reg.Definitions()
	if len(defs) != 8 {
		t.Fatalf("expected 8 tool definitions, got %d", len(defs))
	}
	want := []string{
		ToolGetServices, ToolGetSpecialists, ToolGetAvailableSlots, ToolGetAppointmentsByPhone,
		ToolCreateCustomer, ToolCreateAppointment, ToolCancelAppointment, ToolRescheduleAppointment,
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Fatalf("definition %d = %s, want %s", i, defs[i].Name, name)
		}
	}
}

func TestGetServicesFormatsCatalog(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{
		services: []contractx.ServiceSummary{
			{ID: "svc-1", Name: "Corte", Price: 20000, DurationMin: 30},
			{ID: "svc-2", Name: "Tinte", Price: 80000, DurationMin: 90},
		},
	})
	out := reg.Execute(context.Background(), ToolGetServices, nil)
	if !out.OK {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if !strings.Contains(out.Message, "Corte") || !strings.Contains(out.Message, "svc-2") {
		t.Fatalf("catalog text incomplete: %q", out.Message)
	}
}

func TestGetAvailableSlotsZeroSlotsIsUserInput(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{slots: nil})
	out := reg.Execute(context.Background(), ToolGetAvailableSlots, map[string]any{
		"service_id": "svc-1",
		"date":       "2026-03-15",
	})
	if out.OK {
		t.Fatal("zero slots must fail")
	}
	if out.ErrorKind != contractx.ErrorUserInput {
		t.Fatalf("expected user_input, got %s", out.ErrorKind)
	}
	if !strings.HasPrefix(out.AgentText(), "[ERROR]") {
		t.Fatalf("agent text must carry the error marker: %q", out.AgentText())
	}

	info := recoveryx.InfoFromOutcome(ToolGetAvailableSlots, out, nil, time.Now())
	if info.SuggestedAction != contractx.ActionAskDifferentDate {
		t.Fatalf("expected ask_different_date, got %s", info.SuggestedAction)
	}
}

func TestGetAvailableSlotsRejectsBadDate(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{slots: []string{"10:00"}})
	out := reg.Execute(context.Background(), ToolGetAvailableSlots, map[string]any{
		"service_id": "svc-1",
		"date":       "15/03/2026",
	})
	if out.OK || out.ErrorKind != contractx.ErrorUserInput {
		t.Fatalf("expected user_input failure, got %+v", out)
	}
}

func TestGetAppointmentsByPhonePopulatesSession(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{
		customer: &contractx.Customer{
			ID: "c-1", Phone: "3001234567", FirstName: "Ana", LastName: "Ríos",
			Appointments: []contractx.Appointment{
				{AppointmentID: "a-1", ServiceName: "Corte", SpecialistName: "María", StartTime: "2026-03-15 10:00", Status: "confirmed"},
				{AppointmentID: "a-2", ServiceName: "Tinte", SpecialistName: "Luz", StartTime: "2026-03-20 14:00", Status: "confirmed"},
			},
		},
	}
	reg, store := newTestRegistry(repo)

	out := reg.Execute(context.Background(), ToolGetAppointmentsByPhone, map[string]any{"phone": "3001234567"})
	if !out.OK {
		t.Fatalf("unexpected failure: %s", out.Message)
	}

	cached, err := store.GetCustomer(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if cached == nil || len(cached.Appointments) != 2 {
		t.Fatalf("expected exactly 2 cached appointments, got %+v", cached)
	}
	if cached.Appointments[0].AppointmentID != "a-1" {
		t.Fatalf("first cached appointment = %s, want a-1", cached.Appointments[0].AppointmentID)
	}
}

func TestGetAppointmentsByPhoneUnknownCustomer(t *testing.T) {
	t.Parallel()

	reg, store := newTestRegistry(&fakeRepo{customer: nil})
	out := reg.Execute(context.Background(), ToolGetAppointmentsByPhone, map[string]any{"phone": "3009999999"})
	if out.OK || out.ErrorKind != contractx.ErrorUserInput {
		t.Fatalf("expected user_input failure, got %+v", out)
	}
	if cached, _ := store.GetCustomer(context.Background(), "sess-1"); cached != nil {
		t.Fatal("unknown customer must not be cached")
	}

	info := recoveryx.InfoFromOutcome(ToolGetAppointmentsByPhone, out, nil, time.Now())
	if info.SuggestedAction != contractx.ActionAskCreateNew {
		t.Fatalf("expected ask_create_new, got %s", info.SuggestedAction)
	}
}

func TestCancelWithoutIdentificationDoesNotMutate(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, _ := newTestRegistry(repo)

	out := reg.Execute(context.Background(), ToolCancelAppointment, map[string]any{"appointment_id": "a-1"})
	if out.OK {
		t.Fatal("cancel without identification must fail")
	}
	if !strings.HasPrefix(out.AgentText(), "[ERROR]") {
		t.Fatalf("agent text must carry the error marker: %q", out.AgentText())
	}
	if repo.cancelCalls != 0 {
		t.Fatalf("repository must not be touched, got %d calls", repo.cancelCalls)
	}
}

func TestRescheduleWithoutIdentificationDoesNotMutate(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, _ := newTestRegistry(repo)

	out := reg.Execute(context.Background(), ToolRescheduleAppointment, map[string]any{
		"new_start_time": "2026-03-21 11:00",
	})
	if out.OK {
		t.Fatal("reschedule without identification must fail")
	}
	if repo.rescheduleCalls != 0 {
		t.Fatalf("repository must not be touched, got %d calls", repo.rescheduleCalls)
	}
}

func TestRescheduleReusesFirstStoredAppointment(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, store := newTestRegistry(repo)

	customer := &contractx.Customer{
		ID: "c-1", Phone: "3001234567",
		Appointments: []contractx.Appointment{
			{AppointmentID: "a-1", ServiceName: "Corte", StartTime: "2026-03-15 10:00", Status: "confirmed"},
			{AppointmentID: "a-2", ServiceName: "Tinte", StartTime: "2026-03-20 14:00", Status: "confirmed"},
		},
	}
	if err := store.SetCustomer(context.Background(), "sess-1", customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	// No appointment_id: the first stored appointment is reused.
	out := reg.Execute(context.Background(), ToolRescheduleAppointment, map[string]any{
		"new_start_time": "2026-03-22 09:00",
	})
	if !out.OK {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if repo.lastRescheduleID != "a-1" {
		t.Fatalf("rescheduled %s, want first appointment a-1", repo.lastRescheduleID)
	}

	cached, _ := store.GetCustomer(context.Background(), "sess-1")
	if cached.Appointments[0].StartTime != "2026-03-22 09:00" {
		t.Fatalf("cached start time not updated: %s", cached.Appointments[0].StartTime)
	}
}

func TestCancelUpdatesCachedStatus(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, store := newTestRegistry(repo)
	if err := store.SetCustomer(context.Background(), "sess-1", &contractx.Customer{
		ID: "c-1",
		Appointments: []contractx.Appointment{
			{AppointmentID: "a-1", Status: contractx.StatusConfirmed},
		},
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	out := reg.Execute(context.Background(), ToolCancelAppointment, nil)
	if !out.OK {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if repo.lastCancelledID != "a-1" {
		t.Fatalf("cancelled %s, want a-1", repo.lastCancelledID)
	}
	cached, _ := store.GetCustomer(context.Background(), "sess-1")
	if cached.Appointments[0].Status != contractx.StatusCancelled {
		t.Fatalf("cached status = %s, want %s", cached.Appointments[0].Status, contractx.StatusCancelled)
	}
}

func TestCancelUnknownIDAmongIdentifiedFails(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, store := newTestRegistry(repo)
	if err := store.SetCustomer(context.Background(), "sess-1", &contractx.Customer{
		ID: "c-1",
		Appointments: []contractx.Appointment{
			{AppointmentID: "a-1", Status: contractx.StatusConfirmed},
		},
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	out := reg.Execute(context.Background(), ToolCancelAppointment, map[string]any{"appointment_id": "a-99"})
	if out.OK {
		t.Fatal("cancelling an id outside the identified set must fail")
	}
	if !strings.Contains(out.Message, "a-99") {
		t.Fatalf("message should name the unknown id: %q", out.Message)
	}
	if repo.cancelCalls != 0 {
		t.Fatalf("repository must not be touched, got %d calls", repo.cancelCalls)
	}
}

func TestCreateAppointmentRequiresIdentifiedCustomer(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, _ := newTestRegistry(repo)

	out := reg.Execute(context.Background(), ToolCreateAppointment, map[string]any{
		"service_id":    "svc-1",
		"specialist_id": "sp-1",
		"start_time":    "2026-03-15 10:00",
	})
	if out.OK {
		t.Fatal("create without identified customer must fail")
	}
	if repo.createApptCalls != 0 {
		t.Fatal("repository must not be touched")
	}
}

func TestCreateAppointmentAppendsToCachedList(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	reg, store := newTestRegistry(repo)
	if err := store.SetCustomer(context.Background(), "sess-1", &contractx.Customer{
		ID: "c-1",
		Appointments: []contractx.Appointment{
			{AppointmentID: "a-1", Status: "confirmed"},
		},
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	out := reg.Execute(context.Background(), ToolCreateAppointment, map[string]any{
		"service_id":    "svc-1",
		"specialist_id": "sp-1",
		"start_time":    "2026-03-15 10:00",
	})
	if !out.OK {
		t.Fatalf("unexpected failure: %s", out.Message)
	}

	cached, _ := store.GetCustomer(context.Background(), "sess-1")
	if len(cached.Appointments) != 2 {
		t.Fatalf("expected appended appointment, got %d", len(cached.Appointments))
	}
	if cached.Appointments[1].AppointmentID != "a-new" {
		t.Fatalf("unexpected appended id: %s", cached.Appointments[1].AppointmentID)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{})
	out := reg.Execute(context.Background(), "no_such_tool", nil)
	if out.OK {
		t.Fatal("unknown tool must fail")
	}
	if reg.Has("no_such_tool") {
		t.Fatal("unknown tool must not be registered")
	}
}

func TestExecuteRepositoryErrorIsClassified(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(&fakeRepo{slotsErr: errors.New("connection refused")})
	out := reg.Execute(context.Background(), ToolGetAvailableSlots, map[string]any{
		"service_id": "svc-1",
		"date":       "2026-03-15",
	})
	if out.OK {
		t.Fatal("repository error must fail the tool")
	}
	if out.ErrorKind != contractx.ErrorTemporary {
		t.Fatalf("expected temporary, got %s", out.ErrorKind)
	}
}
