package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

func testScope() auth.Context {
	return auth.Context{
		TenantID: "tenant-1",
		BranchID: "branch-1",
		UserID:   "user-1",
		Role:     auth.RoleManager,
	}
}

func testAppointment() *entities.Appointment {
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	return &entities.Appointment{
		ID:            "appt-1",
		TenantID:      "tenant-1",
		BranchID:      "branch-1",
		CustomerID:    "cust-1",
		StaffID:       "staff-1",
		StartAt:       start,
		EndAt:         start.Add(30 * time.Minute),
		Status:        entities.AppointmentStatusConfirmed,
		PaymentStatus: entities.AppointmentUnpaid,
		Currency:      "INR",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestAppointmentAdapter_CreateBooked(t *testing.T) {
	t.Run("books a free slot", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)
		appt := testAppointment()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`INSERT INTO "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "appointment_services"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := adapter.CreateBooked(context.Background(), appt, []entities.AppointmentServiceLine{{
			ID:                  "line-1",
			TenantID:            appt.TenantID,
			AppointmentID:       appt.ID,
			ServiceID:           "svc-1",
			PriceSnapshot:       500,
			DurationSnapshotMin: 30,
		}})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects an overlapping slot", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("other-appt"))
		mock.ExpectRollback()

		err := adapter.CreateBooked(context.Background(), testAppointment(), nil)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps serialization failure to conflict", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`INSERT INTO "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

		err := adapter.CreateBooked(context.Background(), testAppointment(), nil)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("maps exclusion violation to conflict", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`INSERT INTO "appointments"`).
			WillReturnError(&pq.Error{Code: "23P01"})
		mock.ExpectRollback()

		err := adapter.CreateBooked(context.Background(), testAppointment(), nil)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})
}

func TestAppointmentAdapter_Reschedule(t *testing.T) {
	newStart := time.Date(2026, 9, 14, 14, 0, 0, 0, time.UTC)

	t.Run("moves to a free slot", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "staff_id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"staff_id"}).AddRow("staff-1"))
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := adapter.Reschedule(context.Background(), testScope(), "appt-1",
			newStart, newStart.Add(30*time.Minute))

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a taken slot", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "staff_id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"staff_id"}).AddRow("staff-1"))
		mock.ExpectQuery(`SELECT "id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("other-appt"))
		mock.ExpectRollback()

		err := adapter.Reschedule(context.Background(), testScope(), "appt-1",
			newStart, newStart.Add(30*time.Minute))

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("unknown appointment", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "staff_id" FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"staff_id"}))
		mock.ExpectRollback()

		err := adapter.Reschedule(context.Background(), testScope(), "missing",
			newStart, newStart.Add(30*time.Minute))

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestAppointmentAdapter_Cancel(t *testing.T) {
	t.Run("cancels within scope", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.Cancel(context.Background(), testScope(), "appt-1")
		require.NoError(t, err)
	})

	t.Run("not found outside scope", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.Cancel(context.Background(), testScope(), "appt-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestAppointmentAdapter_ListBusy(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewAppointmentAdapter(client)

	dayStart := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	s1 := dayStart.Add(11 * time.Hour)

	mock.ExpectQuery(`SELECT "start_at", "end_at" FROM "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"start_at", "end_at"}).
			AddRow(s1, s1.Add(30*time.Minute)))

	busy, err := adapter.ListBusy(context.Background(), testScope(), "staff-1",
		dayStart, dayStart.Add(24*time.Hour))

	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, s1, busy[0].Start)
	assert.Equal(t, s1.Add(30*time.Minute), busy[0].End)
}

func TestAppointmentAdapter_GetByID(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewAppointmentAdapter(client)

		mock.ExpectQuery(`SELECT .+ FROM "appointments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		appt, err := adapter.GetByID(context.Background(), testScope(), "missing")
		require.Error(t, err)
		assert.Nil(t, appt)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
