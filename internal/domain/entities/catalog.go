package entities

import (
	"time"
)

// Service is a bookable catalog entry. Read-only input to duration and
// price calculation; bookings snapshot its values at booking time.
type Service struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	DurationMin int       `json:"duration_min" db:"duration_min"`
	Price       float64   `json:"price" db:"price"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Staff is a bookable staff member with a daily working-hours window.
// WorkStartTime/WorkEndTime are "HH:MM" local wall-clock strings.
type Staff struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Role          string    `json:"role" db:"role"`
	WorkStartTime string    `json:"work_start_time" db:"work_start_time"`
	WorkEndTime   string    `json:"work_end_time" db:"work_end_time"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Customer carries the contact snapshot surfaced on payment orders
type Customer struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
