package repositories

import (
	"context"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
)

// ApplyEventParams describes one normalized provider signal to fold into a
// payment. Status "" means log-only (audit row, no transition attempt).
type ApplyEventParams struct {
	Payment           *entities.Payment
	Event             *entities.PaymentEvent
	Status            entities.PaymentStatus
	ProviderPaymentID string
	RefundID          string
	RefundStatus      string
}

// ApplyEventResult reports what a single event application actually did
type ApplyEventResult struct {
	// Duplicate is true when the event id had already been logged; nothing
	// was written and no transition ran.
	Duplicate bool
	// StatusChanged is true when the payment moved forward
	StatusChanged bool
	// NewStatus is the payment status after application
	NewStatus entities.PaymentStatus
	// ReceiptDue is true exactly once per payment: on the transition into
	// CAPTURED that won the receipt_sent_at check-and-set.
	ReceiptDue bool
}

// PaymentRepository defines the interface for payment data operations.
// ApplyEvent is the transactional heart of the reconciliation state
// machine: event insert (idempotency-keyed), forward-only status move,
// appointment payment-status sync and the receipt check-and-set all commit
// or abort together.
type PaymentRepository interface {
	// CreateWithOrder persists a CREATED payment plus its order.created
	// event and stamps amount_due/currency/UNPAID on the appointment, all
	// in one transaction. Fails with PRECONDITION_FAILED when the
	// appointment already has an open payment attempt. Callers invoke this
	// only after the provider order call succeeded.
	CreateWithOrder(ctx context.Context, payment *entities.Payment, event *entities.PaymentEvent) error

	// GetByID retrieves a payment within the caller's tenant/branch scope
	GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Payment, error)

	// FindByProviderOrderID resolves a payment by provider order id within
	// a tenant
	FindByProviderOrderID(ctx context.Context, tenantID, providerOrderID string) (*entities.Payment, error)

	// FindByProviderOrderIDAnyTenant is the global fallback used when the
	// provider did not echo tenant metadata back
	FindByProviderOrderIDAnyTenant(ctx context.Context, providerOrderID string) (*entities.Payment, error)

	// ApplyEvent applies one provider event to a payment atomically
	ApplyEvent(ctx context.Context, params ApplyEventParams) (ApplyEventResult, error)

	// RecordEvent appends an audit-only event row (refund attempts,
	// verification mismatches, unmatched webhooks). Duplicate event ids
	// are silently dropped.
	RecordEvent(ctx context.Context, event *entities.PaymentEvent) error

	// List returns the scope's payments, newest first
	List(ctx context.Context, scope auth.Context) ([]*entities.Payment, error)
}
