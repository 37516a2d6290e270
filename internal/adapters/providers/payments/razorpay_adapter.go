package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// RazorpayAdapter implements the PaymentProvider interface against the
// Razorpay REST API
type RazorpayAdapter struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewRazorpayAdapter creates a new Razorpay adapter
func NewRazorpayAdapter(keyID, keySecret, webhookSecret string) *RazorpayAdapter {
	return &RazorpayAdapter{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// Name returns the provider tag stored on payments
func (r *RazorpayAdapter) Name() string {
	return string(entities.ProviderRazorpay)
}

// KeyID returns the public key for the checkout widget
func (r *RazorpayAdapter) KeyID() string {
	return r.keyID
}

// SupportsRefunds reports refund capability
func (r *RazorpayAdapter) SupportsRefunds() bool {
	return true
}

// CreateOrder creates a Razorpay order. Amounts are in paisa.
func (r *RazorpayAdapter) CreateOrder(ctx context.Context, params providers.CreateOrderParams) (*providers.ProviderOrder, error) {
	notes := map[string]interface{}{}
	for k, v := range params.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   params.AmountMinor,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    notes,
	}

	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, apperrors.NewExternalError("razorpay order creation failed", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, apperrors.NewExternalError("razorpay order response missing id", nil)
	}
	return &providers.ProviderOrder{ID: id, Raw: body}, nil
}

// FetchPayment re-fetches a payment from Razorpay
func (r *RazorpayAdapter) FetchPayment(ctx context.Context, providerPaymentID string) (*providers.ProviderPayment, error) {
	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.client.Payment.Fetch(providerPaymentID, nil, nil)
	})
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("razorpay payment fetch failed for %s", providerPaymentID), err)
	}

	payment := &providers.ProviderPayment{Raw: body}
	payment.ID, _ = body["id"].(string)
	payment.OrderID, _ = body["order_id"].(string)
	payment.Status, _ = body["status"].(string)
	payment.Currency, _ = body["currency"].(string)
	// Razorpay returns amounts as JSON numbers, decoded as float64
	if amount, ok := body["amount"].(float64); ok {
		payment.AmountMinor = int64(amount)
	}
	if payment.ID == "" {
		return nil, apperrors.NewExternalError("razorpay payment response missing id", nil)
	}
	return payment, nil
}

// Refund refunds a captured payment. amountMinor == 0 refunds in full.
func (r *RazorpayAdapter) Refund(ctx context.Context, providerPaymentID string, amountMinor int64) (*providers.ProviderRefund, error) {
	body, err := r.do(ctx, func() (map[string]interface{}, error) {
		return r.client.Payment.Refund(providerPaymentID, int(amountMinor), nil, nil)
	})
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("razorpay refund failed for %s", providerPaymentID), err)
	}

	refund := &providers.ProviderRefund{Raw: body}
	refund.ID, _ = body["id"].(string)
	refund.Status, _ = body["status"].(string)
	if refund.ID == "" {
		return nil, apperrors.NewExternalError("razorpay refund response missing id", nil)
	}
	return refund, nil
}

// VerifyWebhookSignature checks X-Razorpay-Signature against an
// HMAC-SHA256 of the raw request body keyed by the webhook secret
func (r *RazorpayAdapter) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC(r.webhookSecret, rawBody, signature)
}

// VerifyCheckoutSignature checks the checkout callback signature, an
// HMAC-SHA256 over "orderID|paymentID" keyed by the key secret
func (r *RazorpayAdapter) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	payload := orderID + "|" + paymentID
	return verifyHMAC(r.keySecret, []byte(payload), signature)
}

// do runs a blocking SDK call in a goroutine so the context deadline is
// honored. The SDK itself takes no context.
func (r *RazorpayAdapter) do(ctx context.Context, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type outcome struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		body, err := call()
		ch <- outcome{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.body, out.err
	}
}

func verifyHMAC(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
