package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/payments"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

var paymentColumns = []interface{}{
	"id", "tenant_id", "branch_id", "appointment_id", "customer_id",
	"provider", "provider_order_id", "provider_payment_id",
	"amount", "currency", "status", "refund_id", "refund_status",
	"receipt_sent_at", "created_at", "updated_at",
}

// PaymentAdapter implements the PaymentRepository interface
type PaymentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPaymentAdapter creates a new payment adapter
func NewPaymentAdapter(client *postgres.Client) repositories.PaymentRepository {
	return &PaymentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateWithOrder persists a new payment attempt, its order.created audit
// row, and the appointment's amount stamping in one transaction
func (p *PaymentAdapter) CreateWithOrder(ctx context.Context, payment *entities.Payment, event *entities.PaymentEvent) error {
	tx, err := p.client.BeginSerializable(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	open, err := p.openAttemptExists(ctx, tx, payment.TenantID, payment.AppointmentID)
	if err != nil {
		return err
	}
	if open {
		return apperrors.NewPreconditionFailedError("appointment already has an open payment attempt")
	}

	query, args, err := p.db.Insert("payments").Rows(goqu.Record{
		"id":                  payment.ID,
		"tenant_id":           payment.TenantID,
		"branch_id":           payment.BranchID,
		"appointment_id":      payment.AppointmentID,
		"customer_id":         payment.CustomerID,
		"provider":            payment.Provider,
		"provider_order_id":   payment.ProviderOrderID,
		"provider_payment_id": payment.ProviderPaymentID,
		"amount":              payment.Amount,
		"currency":            payment.Currency,
		"status":              payment.Status,
		"created_at":          payment.CreatedAt,
		"updated_at":          payment.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build payment insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create payment", err)
	}

	if _, err := p.insertEvent(ctx, tx, event); err != nil {
		return err
	}

	query, args, err = p.db.Update("appointments").
		Set(goqu.Record{
			"amount_due":     payment.Amount,
			"currency":       payment.Currency,
			"payment_status": entities.AppointmentUnpaid,
			"updated_at":     time.Now(),
		}).
		Where(goqu.Ex{
			"id":        payment.AppointmentID,
			"tenant_id": payment.TenantID,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build appointment stamp", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to stamp appointment", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", payment.AppointmentID))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit payment", err)
	}
	return nil
}

// GetByID retrieves a payment within the caller's tenant/branch scope
func (p *PaymentAdapter) GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Payment, error) {
	return p.findOne(ctx, goqu.Ex{
		"id":        id,
		"tenant_id": scope.TenantID,
		"branch_id": scope.BranchID,
	}, fmt.Sprintf("payment with id %s not found", id))
}

// FindByProviderOrderID resolves a payment by provider order id within a tenant
func (p *PaymentAdapter) FindByProviderOrderID(ctx context.Context, tenantID, providerOrderID string) (*entities.Payment, error) {
	return p.findOne(ctx, goqu.Ex{
		"tenant_id":         tenantID,
		"provider_order_id": providerOrderID,
	}, fmt.Sprintf("payment for order %s not found", providerOrderID))
}

// FindByProviderOrderIDAnyTenant resolves a payment globally. Order ids are
// provider-issued and unique across tenants.
func (p *PaymentAdapter) FindByProviderOrderIDAnyTenant(ctx context.Context, providerOrderID string) (*entities.Payment, error) {
	return p.findOne(ctx, goqu.Ex{
		"provider_order_id": providerOrderID,
	}, fmt.Sprintf("payment for order %s not found", providerOrderID))
}

func (p *PaymentAdapter) findOne(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.Payment, error) {
	query, args, err := p.db.Select(paymentColumns...).
		From("payments").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	payment, err := scanPayment(p.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get payment", err)
	}
	return payment, nil
}

// ApplyEvent folds one provider event into a payment. The event insert is
// keyed on (tenant_id, provider_event_id); a conflict means a replayed
// delivery and the whole application becomes a no-op. Status moves only
// forward; the linked appointment's payment_status is kept in sync in the
// same transaction, as is the receipt check-and-set.
func (p *PaymentAdapter) ApplyEvent(ctx context.Context, params repositories.ApplyEventParams) (repositories.ApplyEventResult, error) {
	var result repositories.ApplyEventResult

	tx, err := p.client.BeginSerializable(ctx)
	if err != nil {
		return result, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	inserted, err := p.insertEvent(ctx, tx, params.Event)
	if err != nil {
		return result, err
	}
	if !inserted {
		result.Duplicate = true
		return result, nil
	}

	current, err := p.lockStatus(ctx, tx, params.Payment.ID)
	if err != nil {
		return result, err
	}
	result.NewStatus = current

	// Provider references (payment id, refund id/status) land regardless of
	// whether a status transition applies: a pending refund must record its
	// refund id even though the payment stays CAPTURED until the provider's
	// webhook.
	record := goqu.Record{}
	if params.ProviderPaymentID != "" {
		record["provider_payment_id"] = params.ProviderPaymentID
	}
	if params.RefundID != "" {
		record["refund_id"] = params.RefundID
	}
	if params.RefundStatus != "" {
		record["refund_status"] = params.RefundStatus
	}

	transition := params.Status != "" && payments.CanTransition(current, params.Status)
	if transition {
		record["status"] = params.Status
	}

	if len(record) > 0 {
		record["updated_at"] = time.Now()
		query, args, err := p.db.Update("payments").
			Set(record).
			Where(goqu.Ex{"id": params.Payment.ID}).
			ToSQL()
		if err != nil {
			return result, apperrors.NewInternalError("failed to build payment update", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return result, apperrors.NewInternalError("failed to update payment", err)
		}
	}

	if !transition {
		// Audit row and references are kept; stale or out-of-order signals
		// do not move the payment.
		if err := tx.Commit(); err != nil {
			return result, apperrors.NewInternalError("failed to commit event", err)
		}
		return result, nil
	}
	result.StatusChanged = true
	result.NewStatus = params.Status

	if apptStatus, ok := payments.AppointmentStatusFor(params.Status); ok {
		query, args, err := p.db.Update("appointments").
			Set(goqu.Record{
				"payment_status": apptStatus,
				"updated_at":     time.Now(),
			}).
			Where(goqu.Ex{
				"id":        params.Payment.AppointmentID,
				"tenant_id": params.Payment.TenantID,
			}).
			ToSQL()
		if err != nil {
			return result, apperrors.NewInternalError("failed to build appointment sync", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return result, apperrors.NewInternalError("failed to sync appointment", err)
		}
	}

	if params.Status == entities.PaymentStatusCaptured {
		won, err := p.claimReceipt(ctx, tx, params.Payment.ID)
		if err != nil {
			return result, err
		}
		result.ReceiptDue = won
	}

	if err := tx.Commit(); err != nil {
		return result, apperrors.NewInternalError("failed to commit event application", err)
	}
	return result, nil
}

// RecordEvent appends an audit-only event row. Duplicates are dropped.
func (p *PaymentAdapter) RecordEvent(ctx context.Context, event *entities.PaymentEvent) error {
	query, args, err := eventInsertSQL(p.db, event)
	if err != nil {
		return err
	}
	if _, err := p.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to record payment event", err)
	}
	return nil
}

// List returns the scope's payments, newest first
func (p *PaymentAdapter) List(ctx context.Context, scope auth.Context) ([]*entities.Payment, error) {
	query, args, err := p.db.Select(paymentColumns...).
		From("payments").
		Where(goqu.Ex{
			"tenant_id": scope.TenantID,
			"branch_id": scope.BranchID,
		}).
		Order(goqu.C("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := p.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list payments", err)
	}
	defer rows.Close()

	var out []*entities.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan payment", err)
		}
		out = append(out, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read payments", err)
	}
	return out, nil
}

func (p *PaymentAdapter) openAttemptExists(ctx context.Context, tx *sql.Tx, tenantID, appointmentID string) (bool, error) {
	query, args, err := p.db.Select("id").
		From("payments").
		Where(
			goqu.Ex{
				"tenant_id":      tenantID,
				"appointment_id": appointmentID,
			},
			goqu.C("status").In(entities.PaymentStatusCreated, entities.PaymentStatusAuthorized),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build open attempt query", err)
	}

	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check open attempts", err)
	}
	return true, nil
}

func (p *PaymentAdapter) lockStatus(ctx context.Context, tx *sql.Tx, paymentID string) (entities.PaymentStatus, error) {
	query, args, err := p.db.Select("status").
		From("payments").
		Where(goqu.Ex{"id": paymentID}).
		ForUpdate(goqu.Wait).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build lock query", err)
	}

	var status entities.PaymentStatus
	err = tx.QueryRowContext(ctx, query, args...).Scan(&status)
	if err == sql.ErrNoRows {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("payment with id %s not found", paymentID))
	}
	if err != nil {
		return "", apperrors.NewInternalError("failed to lock payment", err)
	}
	return status, nil
}

// claimReceipt sets receipt_sent_at iff it is still null. Exactly one
// transaction wins for a given payment, so at most one receipt goes out.
func (p *PaymentAdapter) claimReceipt(ctx context.Context, tx *sql.Tx, paymentID string) (bool, error) {
	query, args, err := p.db.Update("payments").
		Set(goqu.Record{"receipt_sent_at": time.Now()}).
		Where(
			goqu.Ex{"id": paymentID},
			goqu.C("receipt_sent_at").IsNull(),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build receipt claim", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to claim receipt", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affected == 1, nil
}

// insertEvent appends an event row. Returns false without error when the
// (tenant_id, provider_event_id) pair was already logged.
func (p *PaymentAdapter) insertEvent(ctx context.Context, tx *sql.Tx, event *entities.PaymentEvent) (bool, error) {
	query, args, err := eventInsertSQL(p.db, event)
	if err != nil {
		return false, err
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to insert payment event", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affected == 1, nil
}

func eventInsertSQL(db *goqu.Database, event *entities.PaymentEvent) (string, []interface{}, error) {
	query, args, err := db.Insert("payment_events").Rows(goqu.Record{
		"id":                  event.ID,
		"tenant_id":           event.TenantID,
		"provider":            event.Provider,
		"event_type":          event.EventType,
		"provider_event_id":   event.ProviderEventID,
		"provider_order_id":   event.ProviderOrderID,
		"provider_payment_id": event.ProviderPaymentID,
		"payload":             []byte(event.Payload),
		"created_at":          event.CreatedAt,
	}).OnConflict(goqu.DoNothing()).ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build event insert", err)
	}
	return query, args, nil
}

func scanPayment(row rowScanner) (*entities.Payment, error) {
	payment := &entities.Payment{}
	err := row.Scan(
		&payment.ID,
		&payment.TenantID,
		&payment.BranchID,
		&payment.AppointmentID,
		&payment.CustomerID,
		&payment.Provider,
		&payment.ProviderOrderID,
		&payment.ProviderPaymentID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.RefundID,
		&payment.RefundStatus,
		&payment.ReceiptSentAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}
