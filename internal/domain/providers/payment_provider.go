package providers

import (
	"context"
)

// CreateOrderParams is the request for a provider-side payment order.
// Notes travel to the provider and are echoed back on webhooks; the tenant
// id is always embedded there so events can be resolved tenant-scoped.
type CreateOrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// ProviderOrder is the provider's view of a created order
type ProviderOrder struct {
	ID  string
	Raw map[string]interface{}
}

// ProviderPayment is the provider's view of a payment, used for the
// synchronous checkout cross-check
type ProviderPayment struct {
	ID          string
	OrderID     string
	Status      string
	AmountMinor int64
	Currency    string
	Raw         map[string]interface{}
}

// ProviderRefund is the provider's view of a refund
type ProviderRefund struct {
	ID     string
	Status string
	Raw    map[string]interface{}
}

// PaymentProvider is the capability interface for external payment
// services (Razorpay today; new providers implement the same surface).
// Implementations bound every call with the context deadline and never
// retry internally.
type PaymentProvider interface {
	// Name returns the provider tag stored on payments
	Name() string

	// KeyID returns the public key material the client-side checkout
	// widget needs
	KeyID() string

	// SupportsRefunds reports whether Refund may be called
	SupportsRefunds() bool

	// CreateOrder creates a provider-side order for the given amount
	CreateOrder(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error)

	// FetchPayment re-fetches a payment from the provider
	FetchPayment(ctx context.Context, providerPaymentID string) (*ProviderPayment, error)

	// Refund refunds a captured payment. amountMinor == 0 means full refund.
	Refund(ctx context.Context, providerPaymentID string, amountMinor int64) (*ProviderRefund, error)

	// VerifyWebhookSignature checks the signature header against an HMAC
	// over the raw body. Must run before any parsing of the body.
	VerifyWebhookSignature(rawBody []byte, signature string) bool

	// VerifyCheckoutSignature checks the client-computed signature over
	// (order id, payment id)
	VerifyCheckoutSignature(orderID, paymentID, signature string) bool
}
