package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	"github.com/florencygajera/CRM-backend/pkg/config"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// RefundService coordinates provider refunds for captured payments
type RefundService struct {
	payments        *PaymentService
	repo            repositories.PaymentRepository
	provider        providers.PaymentProvider
	providerTimeout time.Duration
}

// NewRefundService creates a new refund service
func NewRefundService(
	payments *PaymentService,
	repo repositories.PaymentRepository,
	provider providers.PaymentProvider,
	cfg *config.PaymentsConfig,
) *RefundService {
	return &RefundService{
		payments:        payments,
		repo:            repo,
		provider:        provider,
		providerTimeout: cfg.ProviderTimeout,
	}
}

// RefundRequest asks to refund a payment. Amount 0 means full refund.
type RefundRequest struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount,omitempty"`
}

// Refund refunds a captured payment through the provider. Only owners and
// managers may refund. Every attempt, successful or not, lands in the
// event log; a processed refund drives the payment to REFUNDED through the
// state machine.
func (s *RefundService) Refund(ctx context.Context, scope auth.Context, req RefundRequest) (*entities.Payment, error) {
	if !scope.CanRefund() {
		return nil, apperrors.NewUnauthorizedError("role may not issue refunds")
	}
	if req.PaymentID == "" {
		return nil, apperrors.NewValidationError("payment_id is required")
	}
	if req.Amount < 0 {
		return nil, apperrors.NewValidationError("amount must be positive")
	}

	if !s.provider.SupportsRefunds() {
		return nil, apperrors.NewPreconditionFailedError("payment provider does not support refunds")
	}

	payment, err := s.repo.GetByID(ctx, scope, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if req.Amount > payment.Amount {
		return nil, apperrors.NewValidationError("refund amount exceeds the captured amount")
	}
	if payment.Status != entities.PaymentStatusCaptured {
		return nil, apperrors.NewPreconditionFailedError("only captured payments can be refunded")
	}
	if payment.ProviderPaymentID == nil || *payment.ProviderPaymentID == "" {
		return nil, apperrors.NewPreconditionFailedError("payment has no provider payment id")
	}
	if payment.RefundStatus != nil && *payment.RefundStatus == entities.RefundStatusProcessed {
		return nil, apperrors.NewPreconditionFailedError("payment is already refunded")
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	refund, err := s.provider.Refund(refundCtx, *payment.ProviderPaymentID, entities.MinorUnits(req.Amount))
	if err != nil {
		// The failed attempt still goes on record.
		s.recordAttempt(ctx, payment, "refund.attempt_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	event := &entities.PaymentEvent{
		ID:                uuid.New().String(),
		TenantID:          &payment.TenantID,
		Provider:          s.provider.Name(),
		EventType:         "refund.initiated",
		ProviderOrderID:   &payment.ProviderOrderID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Payload:           marshalRaw(refund.Raw),
		CreatedAt:         time.Now(),
	}

	// Only a processed refund moves the payment; a pending one records the
	// refund id and waits for the provider's webhook.
	status := entities.PaymentStatus("")
	if refund.Status == entities.RefundStatusProcessed {
		status = entities.PaymentStatusRefunded
	}

	if _, err := s.payments.ApplyProviderEvent(ctx, payment, event, status, "", refund.ID, refund.Status); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, scope, req.PaymentID)
}

func (s *RefundService) recordAttempt(ctx context.Context, payment *entities.Payment, eventType string, raw map[string]interface{}) {
	event := &entities.PaymentEvent{
		ID:                uuid.New().String(),
		TenantID:          &payment.TenantID,
		Provider:          s.provider.Name(),
		EventType:         eventType,
		ProviderOrderID:   &payment.ProviderOrderID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Payload:           marshalRaw(raw),
		CreatedAt:         time.Now(),
	}
	if err := s.repo.RecordEvent(ctx, event); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("payment_id", payment.ID).Msg("failed to record refund attempt")
	}
}

func marshalRaw(raw map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(raw)
	if err != nil {
		return json.RawMessage("{}")
	}
	return payload
}
