package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// WebhookService ingests provider webhook deliveries
type WebhookService struct {
	payments *PaymentService
	provider providers.PaymentProvider
}

// NewWebhookService creates a new webhook service
func NewWebhookService(payments *PaymentService, provider providers.PaymentProvider) *WebhookService {
	return &WebhookService{
		payments: payments,
		provider: provider,
	}
}

// webhookEnvelope is the provider's delivery format. Only the fields the
// state machine needs are pulled out; the raw body is stored verbatim.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity webhookOrderEntity `json:"entity"`
		} `json:"order"`
		Refund struct {
			Entity webhookRefundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Status   string            `json:"status"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes"`
}

type webhookOrderEntity struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Notes  map[string]string `json:"notes"`
}

type webhookRefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
}

// statusForWebhookEvent maps delivery event names onto payment statuses.
// Unlisted events are logged but drive no transition.
func statusForWebhookEvent(event string) entities.PaymentStatus {
	switch event {
	case "payment.authorized":
		return entities.PaymentStatusAuthorized
	case "payment.captured", "order.paid":
		return entities.PaymentStatusCaptured
	case "payment.failed":
		return entities.PaymentStatusFailed
	case "refund.processed":
		return entities.PaymentStatusRefunded
	default:
		return ""
	}
}

// Ingest processes one webhook delivery. The signature is checked over the
// raw body before any parsing. Verified but unmatched deliveries are logged
// and acknowledged; only signature failures and infrastructure errors
// surface to the caller, everything else acks so the provider stops
// retrying.
func (w *WebhookService) Ingest(ctx context.Context, rawBody []byte, signature, providerEventID string) error {
	if !w.provider.VerifyWebhookSignature(rawBody, signature) {
		return apperrors.NewInvalidSignatureError("webhook signature verification failed")
	}

	logger := observability.LoggerFromContext(ctx)

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		// Verified but unparseable; log it and ack.
		logger.Warn().Err(err).Msg("discarding unparseable webhook body")
		return w.recordUnmatched(ctx, nil, "webhook.unparseable", providerEventID, rawBody)
	}

	paymentEntity := envelope.Payload.Payment.Entity
	orderEntity := envelope.Payload.Order.Entity
	refundEntity := envelope.Payload.Refund.Entity

	// Order-only deliveries (order.paid and friends) carry no payment
	// entity; fall back to the order and refund entities for the ids.
	orderID := firstNonEmpty(paymentEntity.OrderID, orderEntity.ID, refundEntity.OrderID)
	providerPaymentID := firstNonEmpty(paymentEntity.ID, refundEntity.PaymentID)
	notes := paymentEntity.Notes
	if len(notes) == 0 {
		notes = orderEntity.Notes
	}

	if orderID == "" {
		logger.Warn().Str("event", envelope.Event).Msg("webhook carries no order id")
		return w.recordUnmatched(ctx, tenantFromNotes(notes), envelope.Event, providerEventID, rawBody)
	}

	payment, err := w.resolve(ctx, tenantFromNotes(notes), orderID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			logger.Warn().Str("event", envelope.Event).Str("order_id", orderID).
				Msg("webhook does not match any payment")
			return w.recordUnmatched(ctx, tenantFromNotes(notes), envelope.Event, providerEventID, rawBody)
		}
		return err
	}

	event := &entities.PaymentEvent{
		ID:              uuid.New().String(),
		TenantID:        &payment.TenantID,
		Provider:        w.provider.Name(),
		EventType:       envelope.Event,
		ProviderOrderID: &orderID,
		Payload:         json.RawMessage(rawBody),
		CreatedAt:       time.Now(),
	}
	if providerEventID != "" {
		event.ProviderEventID = &providerEventID
	}
	if providerPaymentID != "" {
		event.ProviderPaymentID = &providerPaymentID
	}

	status := statusForWebhookEvent(envelope.Event)
	_, err = w.payments.ApplyProviderEvent(ctx, payment, event, status,
		providerPaymentID, refundEntity.ID, refundEntity.Status)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolve finds the payment for an order, tenant-scoped when the order
// notes carried the tenant id, global otherwise
func (w *WebhookService) resolve(ctx context.Context, tenantID *string, orderID string) (*entities.Payment, error) {
	if tenantID != nil {
		payment, err := w.payments.repo.FindByProviderOrderID(ctx, *tenantID, orderID)
		if err == nil {
			return payment, nil
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
	}
	return w.payments.repo.FindByProviderOrderIDAnyTenant(ctx, orderID)
}

func (w *WebhookService) recordUnmatched(ctx context.Context, tenantID *string, eventType, providerEventID string, rawBody []byte) error {
	event := &entities.PaymentEvent{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Provider:  w.provider.Name(),
		EventType: eventType,
		Payload:   json.RawMessage(rawBody),
		CreatedAt: time.Now(),
	}
	if providerEventID != "" {
		event.ProviderEventID = &providerEventID
	}
	return w.payments.repo.RecordEvent(ctx, event)
}

func tenantFromNotes(notes map[string]string) *string {
	if tenant, ok := notes["tenant_id"]; ok && tenant != "" {
		return &tenant
	}
	return nil
}
