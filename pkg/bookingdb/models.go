package bookingdb

import (
	"time"

	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// Appointment lifecycle states persisted in the database. The canonical
// strings live in the contract package so the session projections stay in
// sync with persisted rows.
const (
	StatusConfirmed   = contractx.StatusConfirmed
	StatusCancelled   = contractx.StatusCancelled
	StatusRescheduled = contractx.StatusRescheduled
)

type Business struct {
	bun.BaseModel `bun:"table:businesses,alias:b"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
	// Hours is the human-readable schedule shown in prompts; OpenTime and
	// CloseTime ("15:04") are what slot computation actually uses.
	Hours         string    `bun:"hours"`
	OpenTime      string    `bun:"open_time,notnull"`
	CloseTime     string    `bun:"close_time,notnull"`
	AssistantName string    `bun:"assistant_name,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Service struct {
	bun.BaseModel `bun:"table:services,alias:svc"`

	ID          string    `bun:"id,pk"`
	BusinessID  string    `bun:"business_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Price       float64   `bun:"price,notnull"`
	DurationMin int       `bun:"duration_min,notnull"`
	Active      bool      `bun:"active,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Specialist struct {
	bun.BaseModel `bun:"table:specialists,alias:sp"`

	ID         string    `bun:"id,pk"`
	BusinessID string    `bun:"business_id,notnull"`
	Name       string    `bun:"name,notnull"`
	ServiceIDs []string  `bun:"service_ids,array"`
	Active     bool      `bun:"active,notnull,default:true"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID            string    `bun:"id,pk"`
	BusinessID    string    `bun:"business_id,notnull"`
	UserProfileID string    `bun:"user_profile_id"`
	Phone         string    `bun:"phone,notnull"`
	FirstName     string    `bun:"first_name,notnull"`
	LastName      string    `bun:"last_name"`
	Email         string    `bun:"email"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID           string    `bun:"id,pk"`
	BusinessID   string    `bun:"business_id,notnull"`
	CustomerID   string    `bun:"customer_id,notnull"`
	ServiceID    string    `bun:"service_id,notnull"`
	SpecialistID string    `bun:"specialist_id,notnull"`
	StartTime    time.Time `bun:"start_time,notnull"`
	Status       string    `bun:"status,notnull,default:'confirmed'"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Service    *Service    `bun:"rel:belongs-to,join:service_id=id"`
	Specialist *Specialist `bun:"rel:belongs-to,join:specialist_id=id"`
}

// ScheduleBlock removes a window from a specialist's availability (breaks,
// vacations, external calendar holds).
type ScheduleBlock struct {
	bun.BaseModel `bun:"table:schedule_blocks,alias:sb"`

	ID           string    `bun:"id,pk"`
	BusinessID   string    `bun:"business_id,notnull"`
	SpecialistID string    `bun:"specialist_id,notnull"`
	StartTime    time.Time `bun:"start_time,notnull"`
	EndTime      time.Time `bun:"end_time,notnull"`
	Reason       string    `bun:"reason"`
}
