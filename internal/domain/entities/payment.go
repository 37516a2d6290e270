package entities

import (
	"math"
	"time"
)

// PaymentStatus represents the state of a payment attempt.
// Transitions are monotonic along CREATED -> AUTHORIZED -> CAPTURED ->
// REFUNDED, with FAILED reachable from CREATED/AUTHORIZED.
type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "CREATED"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// PaymentProviderName tags which provider a payment belongs to
type PaymentProviderName string

const (
	ProviderRazorpay PaymentProviderName = "RAZORPAY"
	ProviderMock     PaymentProviderName = "MOCK"
)

// RefundStatusProcessed is the provider refund state that finalizes a refund
const RefundStatusProcessed = "processed"

// Payment is one payment attempt against an appointment. An appointment may
// accumulate several rows across retries but holds at most one in a
// non-terminal state.
type Payment struct {
	ID                string              `json:"id" db:"id"`
	TenantID          string              `json:"tenant_id" db:"tenant_id"`
	BranchID          string              `json:"branch_id" db:"branch_id"`
	AppointmentID     string              `json:"appointment_id" db:"appointment_id"`
	CustomerID        string              `json:"customer_id" db:"customer_id"`
	Provider          PaymentProviderName `json:"provider" db:"provider"`
	ProviderOrderID   string              `json:"provider_order_id" db:"provider_order_id"`
	ProviderPaymentID *string             `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	Amount            float64             `json:"amount" db:"amount"`
	Currency          string              `json:"currency" db:"currency"`
	Status            PaymentStatus       `json:"status" db:"status"`
	RefundID          *string             `json:"refund_id,omitempty" db:"refund_id"`
	RefundStatus      *string             `json:"refund_status,omitempty" db:"refund_status"`
	ReceiptSentAt     *time.Time          `json:"receipt_sent_at,omitempty" db:"receipt_sent_at"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// AmountMinor returns the amount in the currency's minor unit (paisa, cents).
// Providers report amounts in minor units; cross-checks compare on this.
func (p *Payment) AmountMinor() int64 {
	return MinorUnits(p.Amount)
}

// MinorUnits converts a major-unit amount to integer minor units
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
