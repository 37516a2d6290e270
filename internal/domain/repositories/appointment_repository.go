package repositories

import (
	"context"
	"time"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/scheduling"
)

// AppointmentRepository defines the interface for appointment data
// operations. CreateBooked and Reschedule are the booking conflict guard:
// each runs its overlap check and its write inside one serializable
// transaction, so two concurrent bookings for the same staff/time cannot
// both commit. The application-level check is a fast path; the database
// exclusion constraint is the authoritative backstop. Both surface as a
// CONFLICT error.
type AppointmentRepository interface {
	// CreateBooked atomically verifies no overlapping non-cancelled
	// appointment exists for the staff member and inserts the appointment
	// together with its service snapshot lines.
	CreateBooked(ctx context.Context, appointment *entities.Appointment, lines []entities.AppointmentServiceLine) error

	// Reschedule atomically re-checks overlap (excluding the appointment
	// itself) and moves the appointment to [start, end).
	Reschedule(ctx context.Context, scope auth.Context, id string, start, end time.Time) error

	// GetByID retrieves an appointment within the caller's tenant/branch scope
	GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Appointment, error)

	// Cancel soft-cancels an appointment (terminal; the row is kept)
	Cancel(ctx context.Context, scope auth.Context, id string) error

	// UpdateNotes replaces the appointment's notes
	UpdateNotes(ctx context.Context, scope auth.Context, id string, notes string) error

	// ListBusy returns the busy intervals of non-cancelled appointments for
	// a staff member whose start falls inside [dayStart, dayEnd)
	ListBusy(ctx context.Context, scope auth.Context, staffID string, dayStart, dayEnd time.Time) ([]scheduling.Interval, error)

	// List returns the scope's appointments, newest start first
	List(ctx context.Context, scope auth.Context) ([]*entities.Appointment, error)
}
