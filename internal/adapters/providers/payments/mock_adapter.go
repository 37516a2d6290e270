package payments

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// MockAdapter is an in-memory payment provider for development and tests.
// Orders and payments live only for the process lifetime; signatures are
// HMACs over the same payloads as the real provider, keyed by fixed
// dev secrets.
type MockAdapter struct {
	mu       sync.Mutex
	orders   map[string]providers.CreateOrderParams
	payments map[string]*providers.ProviderPayment
	seq      atomic.Int64
}

const (
	mockKeySecret     = "mock_key_secret"
	mockWebhookSecret = "mock_webhook_secret"
)

// NewMockAdapter creates a new mock payment provider
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		orders:   make(map[string]providers.CreateOrderParams),
		payments: make(map[string]*providers.ProviderPayment),
	}
}

func (m *MockAdapter) Name() string {
	return string(entities.ProviderMock)
}

func (m *MockAdapter) KeyID() string {
	return "mock_key_id"
}

func (m *MockAdapter) SupportsRefunds() bool {
	return true
}

// CreateOrder records the order in memory
func (m *MockAdapter) CreateOrder(ctx context.Context, params providers.CreateOrderParams) (*providers.ProviderOrder, error) {
	id := fmt.Sprintf("order_mock_%d", m.seq.Add(1))

	m.mu.Lock()
	m.orders[id] = params
	m.mu.Unlock()

	return &providers.ProviderOrder{
		ID: id,
		Raw: map[string]interface{}{
			"id":       id,
			"amount":   float64(params.AmountMinor),
			"currency": params.Currency,
			"receipt":  params.Receipt,
			"status":   "created",
		},
	}, nil
}

// FetchPayment returns a previously registered payment
func (m *MockAdapter) FetchPayment(ctx context.Context, providerPaymentID string) (*providers.ProviderPayment, error) {
	m.mu.Lock()
	payment, ok := m.payments[providerPaymentID]
	m.mu.Unlock()
	if !ok {
		return nil, apperrors.NewExternalError(fmt.Sprintf("mock payment %s not found", providerPaymentID), nil)
	}
	return payment, nil
}

// Refund marks a refund as processed immediately
func (m *MockAdapter) Refund(ctx context.Context, providerPaymentID string, amountMinor int64) (*providers.ProviderRefund, error) {
	m.mu.Lock()
	_, ok := m.payments[providerPaymentID]
	m.mu.Unlock()
	if !ok {
		return nil, apperrors.NewExternalError(fmt.Sprintf("mock payment %s not found", providerPaymentID), nil)
	}

	id := fmt.Sprintf("rfnd_mock_%d", m.seq.Add(1))
	return &providers.ProviderRefund{
		ID:     id,
		Status: entities.RefundStatusProcessed,
		Raw: map[string]interface{}{
			"id":         id,
			"payment_id": providerPaymentID,
			"amount":     float64(amountMinor),
			"status":     entities.RefundStatusProcessed,
		},
	}, nil
}

func (m *MockAdapter) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC(mockWebhookSecret, rawBody, signature)
}

func (m *MockAdapter) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC(mockKeySecret, []byte(orderID+"|"+paymentID), signature)
}

// RegisterPayment seeds a payment so FetchPayment and Refund can see it.
// Test hook; has no real-provider counterpart.
func (m *MockAdapter) RegisterPayment(payment *providers.ProviderPayment) {
	m.mu.Lock()
	m.payments[payment.ID] = payment
	m.mu.Unlock()
}
