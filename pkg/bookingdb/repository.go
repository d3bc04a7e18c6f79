package bookingdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

const (
	dateLayout  = "2006-01-02"
	startLayout = "2006-01-02 15:04"
)

// startLayouts are the timestamp shapes tools may hand us; the first is also
// the canonical output format.
var startLayouts = []string{startLayout, time.RFC3339, "2006-01-02T15:04"}

// Repository implements contract.BookingRepository on Postgres.
type Repository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) ListServices(ctx context.Context, businessID string) ([]contractx.ServiceSummary, error) {
	var services []Service
	err := r.db.NewSelect().Model(&services).
		Where("svc.business_id = ?", businessID).
		Where("svc.active").
		Order("svc.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	out := make([]contractx.ServiceSummary, 0, len(services))
	for _, svc := range services {
		out = append(out, contractx.ServiceSummary{
			ID:          svc.ID,
			Name:        svc.Name,
			Price:       svc.Price,
			DurationMin: svc.DurationMin,
		})
	}
	return out, nil
}

func (r *Repository) ListSpecialists(ctx context.Context, businessID, serviceID string) ([]contractx.SpecialistSummary, error) {
	q := r.db.NewSelect().Model((*Specialist)(nil)).
		Where("sp.business_id = ?", businessID).
		Where("sp.active").
		Order("sp.name ASC")
	if serviceID != "" {
		q = q.Where("? = ANY(sp.service_ids)", serviceID)
	}

	var specialists []Specialist
	if err := q.Scan(ctx, &specialists); err != nil {
		return nil, fmt.Errorf("list specialists: %w", err)
	}

	out := make([]contractx.SpecialistSummary, 0, len(specialists))
	for _, sp := range specialists {
		out = append(out, contractx.SpecialistSummary{
			ID:       sp.ID,
			Name:     sp.Name,
			Services: sp.ServiceIDs,
		})
	}
	return out, nil
}

func (r *Repository) AvailableSlots(ctx context.Context, businessID, serviceID, specialistID, date string) ([]string, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida: %q", date)
	}

	business, err := r.business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	service := new(Service)
	err = r.db.NewSelect().Model(service).
		Where("svc.id = ? AND svc.business_id = ?", serviceID, businessID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no encontrado: el servicio %s no existe", serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}

	specialists, err := r.ListSpecialists(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	if specialistID != "" {
		filtered := specialists[:0]
		for _, sp := range specialists {
			if sp.ID == specialistID {
				filtered = append(filtered, sp)
			}
		}
		specialists = filtered
	}
	if len(specialists) == 0 {
		return nil, nil
	}

	open, close, err := dayWindow(day, business.OpenTime, business.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("business hours misconfigured: %w", err)
	}
	duration := time.Duration(service.DurationMin) * time.Minute

	perSpecialist := make([][]time.Time, 0, len(specialists))
	for _, sp := range specialists {
		busy, err := r.busyWindows(ctx, businessID, sp.ID, open, close)
		if err != nil {
			return nil, err
		}
		perSpecialist = append(perSpecialist, freeSlots(open, close, duration, busy))
	}
	return mergeSlotTimes(perSpecialist), nil
}

// busyWindows collects the specialist's appointments and schedule blocks that
// fall inside the day window.
func (r *Repository) busyWindows(ctx context.Context, businessID, specialistID string, open, close time.Time) ([]interval, error) {
	var appointments []Appointment
	err := r.db.NewSelect().Model(&appointments).
		Relation("Service").
		Where("a.business_id = ?", businessID).
		Where("a.specialist_id = ?", specialistID).
		Where("a.status != ?", StatusCancelled).
		Where("a.start_time >= ? AND a.start_time < ?", open, close).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	var blocks []ScheduleBlock
	err = r.db.NewSelect().Model(&blocks).
		Where("sb.business_id = ?", businessID).
		Where("sb.specialist_id = ?", specialistID).
		Where("sb.start_time < ? AND sb.end_time > ?", close, open).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedule blocks: %w", err)
	}

	busy := make([]interval, 0, len(appointments)+len(blocks))
	for _, appt := range appointments {
		durationMin := 30
		if appt.Service != nil && appt.Service.DurationMin > 0 {
			durationMin = appt.Service.DurationMin
		}
		busy = append(busy, interval{
			start: appt.StartTime,
			end:   appt.StartTime.Add(time.Duration(durationMin) * time.Minute),
		})
	}
	for _, block := range blocks {
		busy = append(busy, interval{start: block.StartTime, end: block.EndTime})
	}
	return busy, nil
}

func (r *Repository) FindCustomerByPhone(ctx context.Context, businessID, phone string) (*contractx.Customer, error) {
	customer := new(Customer)
	err := r.db.NewSelect().Model(customer).
		Where("c.business_id = ?", businessID).
		Where("c.phone = ?", phone).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	var appointments []Appointment
	err = r.db.NewSelect().Model(&appointments).
		Relation("Service").
		Relation("Specialist").
		Where("a.business_id = ?", businessID).
		Where("a.customer_id = ?", customer.ID).
		Where("a.status != ?", StatusCancelled).
		Order("a.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customer appointments: %w", err)
	}

	out := &contractx.Customer{
		ID:            customer.ID,
		UserProfileID: customer.UserProfileID,
		Phone:         customer.Phone,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Email:         customer.Email,
		Appointments:  make([]contractx.Appointment, 0, len(appointments)),
	}
	for _, appt := range appointments {
		out.Appointments = append(out.Appointments, projectAppointment(appt))
	}
	return out, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, businessID string, customer contractx.Customer) (*contractx.Customer, error) {
	row := &Customer{
		ID:            uuid.NewString(),
		BusinessID:    businessID,
		UserProfileID: customer.UserProfileID,
		Phone:         strings.TrimSpace(customer.Phone),
		FirstName:     strings.TrimSpace(customer.FirstName),
		LastName:      strings.TrimSpace(customer.LastName),
		Email:         strings.TrimSpace(customer.Email),
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	created := customer
	created.ID = row.ID
	created.Appointments = nil
	return &created, nil
}

func (r *Repository) CreateAppointment(ctx context.Context, businessID string, appt contractx.Appointment, customerID string) (*contractx.Appointment, error) {
	start, err := parseStart(appt.StartTime)
	if err != nil {
		return nil, err
	}

	// Same specialist, overlapping confirmed appointment -> the slot is gone.
	taken, err := r.db.NewSelect().Model((*Appointment)(nil)).
		Where("a.business_id = ?", businessID).
		Where("a.specialist_id = ?", appt.SpecialistID).
		Where("a.status != ?", StatusCancelled).
		Where("a.start_time = ?", start).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("sin disponibilidad: el horario %s ya está ocupado", appt.StartTime)
	}

	row := &Appointment{
		ID:           uuid.NewString(),
		BusinessID:   businessID,
		CustomerID:   customerID,
		ServiceID:    appt.ServiceID,
		SpecialistID: appt.SpecialistID,
		StartTime:    start,
		Status:       StatusConfirmed,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return r.loadProjection(ctx, businessID, row.ID)
}

func (r *Repository) CancelAppointment(ctx context.Context, businessID, appointmentID string) error {
	res, err := r.db.NewUpdate().Model((*Appointment)(nil)).
		Set("status = ?", StatusCancelled).
		Where("id = ? AND business_id = ?", appointmentID, businessID).
		Where("status != ?", StatusCancelled).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("no encontrado: la cita %s no existe o ya fue cancelada", appointmentID)
	}
	return nil
}

func (r *Repository) RescheduleAppointment(ctx context.Context, businessID, appointmentID, newStart string) (*contractx.Appointment, error) {
	start, err := parseStart(newStart)
	if err != nil {
		return nil, err
	}

	res, err := r.db.NewUpdate().Model((*Appointment)(nil)).
		Set("start_time = ?", start).
		Set("status = ?", StatusRescheduled).
		Where("id = ? AND business_id = ?", appointmentID, businessID).
		Where("status != ?", StatusCancelled).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("no encontrado: la cita %s no existe o ya fue cancelada", appointmentID)
	}
	return r.loadProjection(ctx, businessID, appointmentID)
}

func (r *Repository) Snapshot(ctx context.Context, businessID string) (*contractx.BusinessSnapshot, error) {
	business, err := r.business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	services, err := r.ListServices(ctx, businessID)
	if err != nil {
		return nil, err
	}
	specialists, err := r.ListSpecialists(ctx, businessID, "")
	if err != nil {
		return nil, err
	}

	return &contractx.BusinessSnapshot{
		BusinessID:    business.ID,
		BusinessName:  business.Name,
		Hours:         business.Hours,
		AssistantName: business.AssistantName,
		Services:      services,
		Specialists:   specialists,
		Now:           r.now(),
	}, nil
}

func (r *Repository) business(ctx context.Context, businessID string) (*Business, error) {
	business := new(Business)
	err := r.db.NewSelect().Model(business).Where("b.id = ?", businessID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no encontrado: el negocio %s no existe", businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	return business, nil
}

func (r *Repository) loadProjection(ctx context.Context, businessID, appointmentID string) (*contractx.Appointment, error) {
	appt := new(Appointment)
	err := r.db.NewSelect().Model(appt).
		Relation("Service").
		Relation("Specialist").
		Where("a.id = ? AND a.business_id = ?", appointmentID, businessID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	out := projectAppointment(*appt)
	return &out, nil
}

func projectAppointment(appt Appointment) contractx.Appointment {
	out := contractx.Appointment{
		AppointmentID: appt.ID,
		ServiceID:     appt.ServiceID,
		SpecialistID:  appt.SpecialistID,
		StartTime:     appt.StartTime.Format(startLayout),
		Status:        appt.Status,
	}
	if appt.Service != nil {
		out.ServiceName = appt.Service.Name
	}
	if appt.Specialist != nil {
		out.SpecialistName = appt.Specialist.Name
	}
	return out
}

func parseStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha inválida: %q, usa el formato YYYY-MM-DD HH:MM", raw)
}
