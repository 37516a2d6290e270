package entities

import (
	"encoding/json"
	"time"
)

// PaymentEvent is one row of the append-only log of inbound provider
// signals. (tenant_id, provider_event_id) is unique when the event id is
// non-null, which is what makes duplicate webhook deliveries no-ops.
// Rows are never mutated or deleted.
type PaymentEvent struct {
	ID                string          `json:"id" db:"id"`
	TenantID          *string         `json:"tenant_id,omitempty" db:"tenant_id"`
	Provider          string          `json:"provider" db:"provider"`
	EventType         string          `json:"event_type" db:"event_type"`
	ProviderEventID   *string         `json:"provider_event_id,omitempty" db:"provider_event_id"`
	ProviderOrderID   *string         `json:"provider_order_id,omitempty" db:"provider_order_id"`
	ProviderPaymentID *string         `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	Payload           json.RawMessage `json:"payload" db:"payload"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
