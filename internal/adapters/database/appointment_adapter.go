package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/domain/scheduling"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// Postgres error codes that mean the slot race was lost: serialization
// failure under serializable isolation, and the exclusion-constraint
// backstop on appointments.
const (
	pgSerializationFailure = "40001"
	pgExclusionViolation   = "23P01"
)

var appointmentColumns = []interface{}{
	"id", "tenant_id", "branch_id", "customer_id", "staff_id",
	"start_at", "end_at", "status", "payment_status",
	"amount_due", "currency", "notes", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateBooked inserts an appointment plus its service snapshot lines after
// re-checking for overlap, all inside one serializable transaction. The
// check alone is not race-free; the isolation level and the exclusion
// constraint on appointments are what make concurrent bookings safe.
func (a *AppointmentAdapter) CreateBooked(ctx context.Context, appointment *entities.Appointment, lines []entities.AppointmentServiceLine) error {
	tx, err := a.client.BeginSerializable(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	conflict, err := a.overlapExists(ctx, tx, appointment.TenantID, appointment.BranchID,
		appointment.StaffID, appointment.StartAt, appointment.EndAt, "")
	if err != nil {
		return err
	}
	if conflict {
		return apperrors.NewConflictError("time slot already booked")
	}

	record := goqu.Record{
		"id":             appointment.ID,
		"tenant_id":      appointment.TenantID,
		"branch_id":      appointment.BranchID,
		"customer_id":    appointment.CustomerID,
		"staff_id":       appointment.StaffID,
		"start_at":       appointment.StartAt,
		"end_at":         appointment.EndAt,
		"status":         appointment.Status,
		"payment_status": appointment.PaymentStatus,
		"amount_due":     appointment.AmountDue,
		"currency":       appointment.Currency,
		"notes":          appointment.Notes,
		"created_at":     appointment.CreatedAt,
		"updated_at":     appointment.UpdatedAt,
	}
	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapSlotError(err, "failed to create appointment")
	}

	for _, line := range lines {
		query, args, err := a.db.Insert("appointment_services").Rows(goqu.Record{
			"id":                    line.ID,
			"tenant_id":             line.TenantID,
			"appointment_id":        line.AppointmentID,
			"service_id":            line.ServiceID,
			"price_snapshot":        line.PriceSnapshot,
			"duration_snapshot_min": line.DurationSnapshotMin,
		}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build snapshot insert", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to create service snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return mapSlotError(err, "failed to commit booking")
	}
	return nil
}

// Reschedule moves an appointment to a new interval after re-checking
// overlap with the appointment itself excluded. Same transactional
// guarantees as CreateBooked.
func (a *AppointmentAdapter) Reschedule(ctx context.Context, scope auth.Context, id string, start, end time.Time) error {
	tx, err := a.client.BeginSerializable(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	conflict, err := a.overlapExistsForUpdate(ctx, tx, scope, id, start, end)
	if err != nil {
		return err
	}
	if conflict {
		return apperrors.NewConflictError("time slot already booked")
	}

	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"start_at":   start,
			"end_at":     end,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{
			"id":        id,
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reschedule query", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return mapSlotError(err, "failed to reschedule appointment")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}

	if err := tx.Commit(); err != nil {
		return mapSlotError(err, "failed to commit reschedule")
	}
	return nil
}

// GetByID retrieves an appointment within the caller's scope
func (a *AppointmentAdapter) GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{
			"id":        id,
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appt, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appt, nil
}

// Cancel soft-cancels an appointment
func (a *AppointmentAdapter) Cancel(ctx context.Context, scope auth.Context, id string) error {
	return a.update(ctx, scope, id, goqu.Record{
		"status":     entities.AppointmentStatusCancelled,
		"updated_at": time.Now(),
	})
}

// UpdateNotes replaces the appointment's notes
func (a *AppointmentAdapter) UpdateNotes(ctx context.Context, scope auth.Context, id string, notes string) error {
	return a.update(ctx, scope, id, goqu.Record{
		"notes":      notes,
		"updated_at": time.Now(),
	})
}

func (a *AppointmentAdapter) update(ctx context.Context, scope auth.Context, id string, record goqu.Record) error {
	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{
			"id":        id,
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

// ListBusy returns the busy intervals of non-cancelled appointments for a
// staff member on one day
func (a *AppointmentAdapter) ListBusy(ctx context.Context, scope auth.Context, staffID string, dayStart, dayEnd time.Time) ([]scheduling.Interval, error) {
	query, args, err := a.db.Select("start_at", "end_at").
		From("appointments").
		Where(
			goqu.Ex{
				"tenant_id": scope.TenantID,
				"branch_id": scope.BranchID,
				"staff_id":  staffID,
			},
			goqu.C("status").Neq(entities.AppointmentStatusCancelled),
			goqu.C("start_at").Gte(dayStart),
			goqu.C("start_at").Lt(dayEnd),
		).
		Order(goqu.C("start_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build busy query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list busy intervals", err)
	}
	defer rows.Close()

	var busy []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, apperrors.NewInternalError("failed to scan busy interval", err)
		}
		busy = append(busy, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read busy intervals", err)
	}
	return busy, nil
}

// List returns the scope's appointments, newest start first
func (a *AppointmentAdapter) List(ctx context.Context, scope auth.Context) ([]*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		Order(goqu.C("start_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var out []*entities.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read appointments", err)
	}
	return out, nil
}

// overlapExists is the open-interval overlap test
// (busy.start < end AND busy.end > start) scoped to tenant/branch/staff
func (a *AppointmentAdapter) overlapExists(ctx context.Context, tx *sql.Tx, tenantID, branchID, staffID string, start, end time.Time, excludeID string) (bool, error) {
	ds := a.db.Select("id").
		From("appointments").
		Where(
			goqu.Ex{
				"tenant_id": tenantID,
				"branch_id": branchID,
				"staff_id":  staffID,
			},
			goqu.C("status").Neq(entities.AppointmentStatusCancelled),
			goqu.C("start_at").Lt(end),
			goqu.C("end_at").Gt(start),
		).
		Limit(1)
	if excludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(excludeID))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build overlap query", err)
	}

	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check overlap", err)
	}
	return true, nil
}

func (a *AppointmentAdapter) overlapExistsForUpdate(ctx context.Context, tx *sql.Tx, scope auth.Context, id string, start, end time.Time) (bool, error) {
	var staffID string
	query, args, err := a.db.Select("staff_id").
		From("appointments").
		Where(goqu.Ex{
			"id":        id,
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build staff lookup", err)
	}
	err = tx.QueryRowContext(ctx, query, args...).Scan(&staffID)
	if err == sql.ErrNoRows {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to load appointment", err)
	}

	return a.overlapExists(ctx, tx, scope.TenantID, scope.BranchID, staffID, start, end, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appt := &entities.Appointment{}
	var notes sql.NullString
	err := row.Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.BranchID,
		&appt.CustomerID,
		&appt.StaffID,
		&appt.StartAt,
		&appt.EndAt,
		&appt.Status,
		&appt.PaymentStatus,
		&appt.AmountDue,
		&appt.Currency,
		&notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.Notes = notes.String
	return appt, nil
}

// mapSlotError maps the database's two "you lost the slot race" errors to
// the conflict type callers expect
func mapSlotError(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgExclusionViolation:
			return apperrors.NewConflictError("time slot already booked")
		}
	}
	return apperrors.NewInternalError(msg, err)
}
