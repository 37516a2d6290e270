package entities

import (
	"time"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// AppointmentPaymentStatus mirrors the linked payment's state on the appointment
type AppointmentPaymentStatus string

const (
	AppointmentUnpaid    AppointmentPaymentStatus = "UNPAID"
	AppointmentPaid      AppointmentPaymentStatus = "PAID"
	AppointmentPayFailed AppointmentPaymentStatus = "FAILED"
	AppointmentRefunded  AppointmentPaymentStatus = "REFUNDED"
)

// Appointment represents a booked time slot for a staff member.
// Rows are soft-cancelled, never deleted; for a given
// (tenant, branch, staff) no two non-cancelled appointments may have
// overlapping [StartAt, EndAt) intervals.
type Appointment struct {
	ID            string                   `json:"id" db:"id"`
	TenantID      string                   `json:"tenant_id" db:"tenant_id"`
	BranchID      string                   `json:"branch_id" db:"branch_id"`
	CustomerID    string                   `json:"customer_id" db:"customer_id"`
	StaffID       string                   `json:"staff_id" db:"staff_id"`
	StartAt       time.Time                `json:"start_at" db:"start_at"`
	EndAt         time.Time                `json:"end_at" db:"end_at"`
	Status        AppointmentStatus        `json:"status" db:"status"`
	PaymentStatus AppointmentPaymentStatus `json:"payment_status" db:"payment_status"`
	AmountDue     float64                  `json:"amount_due" db:"amount_due"`
	Currency      string                   `json:"currency" db:"currency"`
	Notes         string                   `json:"notes" db:"notes"`
	CreatedAt     time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at" db:"updated_at"`
}

// Duration returns the appointment length. Reschedules preserve it.
func (a *Appointment) Duration() time.Duration {
	return a.EndAt.Sub(a.StartAt)
}

// AppointmentServiceLine snapshots a service's price and duration onto a
// booking so later catalog changes do not alter historical appointments.
// Snapshot values are immutable once written.
type AppointmentServiceLine struct {
	ID                  string  `json:"id" db:"id"`
	TenantID            string  `json:"tenant_id" db:"tenant_id"`
	AppointmentID       string  `json:"appointment_id" db:"appointment_id"`
	ServiceID           string  `json:"service_id" db:"service_id"`
	PriceSnapshot       float64 `json:"price_snapshot" db:"price_snapshot"`
	DurationSnapshotMin int     `json:"duration_snapshot_min" db:"duration_snapshot_min"`
}
