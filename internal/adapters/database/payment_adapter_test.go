package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

func testPayment(status entities.PaymentStatus) *entities.Payment {
	return &entities.Payment{
		ID:              "pay-1",
		TenantID:        "tenant-1",
		BranchID:        "branch-1",
		AppointmentID:   "appt-1",
		CustomerID:      "cust-1",
		Provider:        entities.ProviderRazorpay,
		ProviderOrderID: "order_abc",
		Amount:          500,
		Currency:        "INR",
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func testEvent(eventID string) *entities.PaymentEvent {
	tenant := "tenant-1"
	orderID := "order_abc"
	return &entities.PaymentEvent{
		ID:              "evt-row-1",
		TenantID:        &tenant,
		Provider:        "RAZORPAY",
		EventType:       "payment.captured",
		ProviderEventID: &eventID,
		ProviderOrderID: &orderID,
		Payload:         json.RawMessage(`{}`),
		CreatedAt:       time.Now(),
	}
}

func TestPaymentAdapter_CreateWithOrder(t *testing.T) {
	t.Run("creates payment, event and stamps appointment", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`INSERT INTO "payments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := adapter.CreateWithOrder(context.Background(), testPayment(entities.PaymentStatusCreated), testEvent("evt_1"))

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a second open attempt", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "id" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pay-0"))
		mock.ExpectRollback()

		err := adapter.CreateWithOrder(context.Background(), testPayment(entities.PaymentStatusCreated), testEvent("evt_1"))

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
	})
}

func TestPaymentAdapter_ApplyEvent(t *testing.T) {
	t.Run("applies a capture and claims the receipt", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "status" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AUTHORIZED"))
		mock.ExpectExec(`UPDATE "payments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "payments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment:           testPayment(entities.PaymentStatusAuthorized),
			Event:             testEvent("evt_cap"),
			Status:            entities.PaymentStatusCaptured,
			ProviderPaymentID: "pay_xyz",
		})

		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.True(t, result.StatusChanged)
		assert.True(t, result.ReceiptDue)
		assert.Equal(t, entities.PaymentStatusCaptured, result.NewStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replayed event id is a no-op", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment: testPayment(entities.PaymentStatusCaptured),
			Event:   testEvent("evt_cap"),
			Status:  entities.PaymentStatusCaptured,
		})

		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.False(t, result.StatusChanged)
		assert.False(t, result.ReceiptDue)
	})

	t.Run("backward event logs but does not move the payment", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "status" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CAPTURED"))
		mock.ExpectCommit()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment: testPayment(entities.PaymentStatusCaptured),
			Event:   testEvent("evt_late_auth"),
			Status:  entities.PaymentStatusAuthorized,
		})

		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.False(t, result.StatusChanged)
		assert.Equal(t, entities.PaymentStatusCaptured, result.NewStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("receipt claim lost means no receipt due", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "status" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AUTHORIZED"))
		mock.ExpectExec(`UPDATE "payments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "appointments"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "payments"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment: testPayment(entities.PaymentStatusAuthorized),
			Event:   testEvent("evt_cap_2"),
			Status:  entities.PaymentStatusCaptured,
		})

		require.NoError(t, err)
		assert.True(t, result.StatusChanged)
		assert.False(t, result.ReceiptDue)
	})

	t.Run("pending refund records the refund id without a transition", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "status" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CAPTURED"))
		mock.ExpectExec(`UPDATE "payments" SET .*"refund_id"='rfnd_123',"refund_status"='pending'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment:      testPayment(entities.PaymentStatusCaptured),
			Event:        testEvent("evt_refund_pending"),
			RefundID:     "rfnd_123",
			RefundStatus: "pending",
		})

		require.NoError(t, err)
		assert.False(t, result.StatusChanged)
		assert.False(t, result.ReceiptDue)
		assert.Equal(t, entities.PaymentStatusCaptured, result.NewStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("log-only event keeps the audit row", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT "status" FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CREATED"))
		mock.ExpectCommit()

		result, err := adapter.ApplyEvent(context.Background(), repositories.ApplyEventParams{
			Payment: testPayment(entities.PaymentStatusCreated),
			Event:   testEvent("evt_ping"),
		})

		require.NoError(t, err)
		assert.False(t, result.StatusChanged)
		assert.Equal(t, entities.PaymentStatusCreated, result.NewStatus)
	})
}

func TestPaymentAdapter_RecordEvent(t *testing.T) {
	t.Run("replayed unmatched event inserts nothing", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectExec(`INSERT INTO "payment_events" .+ ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		event := testEvent("evt_unmatched")
		event.TenantID = nil
		event.ProviderOrderID = nil
		event.EventType = "payment.captured"

		err := adapter.RecordEvent(context.Background(), event)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentAdapter_FindByProviderOrderID(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client, mock := setupMockClient(t)
		adapter := NewPaymentAdapter(client)

		mock.ExpectQuery(`SELECT .+ FROM "payments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		payment, err := adapter.FindByProviderOrderID(context.Background(), "tenant-1", "order_missing")
		require.Error(t, err)
		assert.Nil(t, payment)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
