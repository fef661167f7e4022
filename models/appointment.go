package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Appointment states. Cancelled and completed are terminal.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is the current/live state of a booking.
type Appointment struct {
	Id        string  `json:"id" gorm:"primaryKey"`
	UserID    string  `json:"user_id" gorm:"not null;index:idx_appointments_user_starts_at,priority:1"`
	User      User    `json:"-" gorm:"foreignKey:UserID;references:Id"`
	ServiceID string  `json:"service_id" gorm:"not null;index"`
	Service   Service `json:"service" gorm:"foreignKey:ServiceID;references:Id;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`

	StartsAt time.Time      `json:"starts_at" gorm:"not null;index:idx_appointments_user_starts_at,priority:2"`
	EndsAt   time.Time      `json:"ends_at" gorm:"not null"`
	Status   string         `json:"status" gorm:"type:VARCHAR(20);not null"`
	Notes    datatypes.JSON `json:"notes" gorm:"type:jsonb"`

	// Payments rollup
	PaidTotal float64 `json:"paid_total" gorm:"type:numeric(12,2)"`

	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	a.Id = uuid.NewString()
	return
}

// Payment is linked to an appointment and survives rescheduling.
type Payment struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	AppointmentID string    `json:"appointment_id" gorm:"not null;index:idx_payments_appointment_paid_at,priority:1"`
	Amount        float64   `json:"amount" gorm:"type:numeric(12,2)"`
	Method        string    `json:"method"`
	Reference     string    `json:"reference"`
	Note          string    `json:"note"`
	PaidAt        time.Time `json:"paid_at" gorm:"index:idx_payments_appointment_paid_at,priority:2"`
	CreatedAt     time.Time `json:"created_at"`
}
