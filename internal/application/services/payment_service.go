package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/payments"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	"github.com/florencygajera/CRM-backend/pkg/config"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// PaymentService issues provider orders, verifies checkout callbacks and
// applies provider events to the payment state machine
type PaymentService struct {
	repo            repositories.PaymentRepository
	appointmentRepo repositories.AppointmentRepository
	customerRepo    repositories.CustomerRepository
	provider        providers.PaymentProvider
	notifier        providers.Notifier
	receipts        *ReceiptService
	metrics         *observability.Metrics
	providerTimeout time.Duration
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	repo repositories.PaymentRepository,
	appointmentRepo repositories.AppointmentRepository,
	customerRepo repositories.CustomerRepository,
	provider providers.PaymentProvider,
	notifier providers.Notifier,
	receipts *ReceiptService,
	metrics *observability.Metrics,
	cfg *config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		repo:            repo,
		appointmentRepo: appointmentRepo,
		customerRepo:    customerRepo,
		provider:        provider,
		notifier:        notifier,
		receipts:        receipts,
		metrics:         metrics,
		providerTimeout: cfg.ProviderTimeout,
	}
}

// CreateOrderRequest asks for a provider order against an appointment
type CreateOrderRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// CreateOrderResponse carries what the checkout widget needs
type CreateOrderResponse struct {
	PaymentID       string             `json:"payment_id"`
	ProviderOrderID string             `json:"provider_order_id"`
	KeyID           string             `json:"key_id"`
	Amount          float64            `json:"amount"`
	AmountMinor     int64              `json:"amount_minor"`
	Currency        string             `json:"currency"`
	Customer        *entities.Customer `json:"customer"`
}

// CreateOrder creates a provider-side order and the local CREATED payment.
// The provider call runs first, bounded by the configured timeout; if it
// fails nothing is persisted. The local write then refuses a second open
// attempt for the same appointment.
func (s *PaymentService) CreateOrder(ctx context.Context, scope auth.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.AppointmentID == "" {
		return nil, apperrors.NewValidationError("appointment_id is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, scope, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status == entities.AppointmentStatusCancelled {
		return nil, apperrors.NewPreconditionFailedError("cannot collect payment for a cancelled appointment")
	}

	customer, err := s.customerRepo.GetByID(ctx, scope.TenantID, appointment.CustomerID)
	if err != nil {
		return nil, err
	}

	amountMinor := entities.MinorUnits(req.Amount)
	orderCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	order, err := s.provider.CreateOrder(orderCtx, providers.CreateOrderParams{
		AmountMinor: amountMinor,
		Currency:    req.Currency,
		Receipt:     req.AppointmentID,
		Notes: map[string]string{
			"tenant_id":      scope.TenantID,
			"branch_id":      scope.BranchID,
			"appointment_id": req.AppointmentID,
		},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &entities.Payment{
		ID:              uuid.New().String(),
		TenantID:        scope.TenantID,
		BranchID:        scope.BranchID,
		AppointmentID:   req.AppointmentID,
		CustomerID:      appointment.CustomerID,
		Provider:        entities.PaymentProviderName(s.provider.Name()),
		ProviderOrderID: order.ID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Status:          entities.PaymentStatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	event := s.newEvent(&scope.TenantID, "order.created", nil, &order.ID, nil, order.Raw)

	if err := s.repo.CreateWithOrder(ctx, payment, event); err != nil {
		return nil, err
	}

	return &CreateOrderResponse{
		PaymentID:       payment.ID,
		ProviderOrderID: order.ID,
		KeyID:           s.provider.KeyID(),
		Amount:          payment.Amount,
		AmountMinor:     amountMinor,
		Currency:        payment.Currency,
		Customer:        customer,
	}, nil
}

// VerifyCheckoutRequest is the client's checkout callback
type VerifyCheckoutRequest struct {
	PaymentID         string `json:"payment_id"`
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Signature         string `json:"signature"`
}

// VerifyCheckout verifies a checkout callback signature, cross-checks the
// provider's record against the local one and moves the payment forward.
// An already-captured payment short-circuits to success so client retries
// are harmless.
func (s *PaymentService) VerifyCheckout(ctx context.Context, scope auth.Context, req VerifyCheckoutRequest) (*entities.Payment, error) {
	if req.PaymentID == "" || req.ProviderOrderID == "" || req.ProviderPaymentID == "" || req.Signature == "" {
		return nil, apperrors.NewValidationError("payment_id, provider_order_id, provider_payment_id and signature are required")
	}

	payment, err := s.repo.GetByID(ctx, scope, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == entities.PaymentStatusCaptured {
		return payment, nil
	}
	if payment.ProviderOrderID != req.ProviderOrderID {
		return nil, apperrors.NewValidationError("order id does not match payment")
	}

	if !s.provider.VerifyCheckoutSignature(req.ProviderOrderID, req.ProviderPaymentID, req.Signature) {
		return nil, apperrors.NewInvalidSignatureError("checkout signature verification failed")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	remote, err := s.provider.FetchPayment(fetchCtx, req.ProviderPaymentID)
	if err != nil {
		return nil, err
	}

	if remote.AmountMinor != payment.AmountMinor() || remote.Currency != payment.Currency {
		// Keep the mismatch on record; the payment does not move.
		audit := s.newEvent(&payment.TenantID, "checkout.mismatch", nil,
			&payment.ProviderOrderID, &req.ProviderPaymentID, remote.Raw)
		if recErr := s.repo.RecordEvent(ctx, audit); recErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(recErr).
				Str("payment_id", payment.ID).Msg("failed to record mismatch event")
		}
		return nil, apperrors.NewMismatchError(
			fmt.Sprintf("provider reports %d %s, expected %d %s",
				remote.AmountMinor, remote.Currency, payment.AmountMinor(), payment.Currency))
	}

	status, ok := payments.NormalizeProviderStatus(remote.Status)
	if !ok {
		// Unknown provider status: keep the audit row, report the payment
		// as-is.
		status = ""
	}

	event := s.newEvent(&payment.TenantID, "checkout.verified", nil,
		&payment.ProviderOrderID, &req.ProviderPaymentID, remote.Raw)
	if _, err := s.ApplyProviderEvent(ctx, payment, event, status, req.ProviderPaymentID, "", ""); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, scope, req.PaymentID)
}

// Get retrieves a payment in scope
func (s *PaymentService) Get(ctx context.Context, scope auth.Context, id string) (*entities.Payment, error) {
	return s.repo.GetByID(ctx, scope, id)
}

// List returns the scope's payments
func (s *PaymentService) List(ctx context.Context, scope auth.Context) ([]*entities.Payment, error) {
	return s.repo.List(ctx, scope)
}

// ApplyProviderEvent runs one normalized provider signal through the state
// machine and dispatches the receipt when this application was the one that
// first captured the payment
func (s *PaymentService) ApplyProviderEvent(
	ctx context.Context,
	payment *entities.Payment,
	event *entities.PaymentEvent,
	status entities.PaymentStatus,
	providerPaymentID, refundID, refundStatus string,
) (repositories.ApplyEventResult, error) {
	result, err := s.repo.ApplyEvent(ctx, repositories.ApplyEventParams{
		Payment:           payment,
		Event:             event,
		Status:            status,
		ProviderPaymentID: providerPaymentID,
		RefundID:          refundID,
		RefundStatus:      refundStatus,
	})
	if err != nil {
		return result, err
	}

	if result.Duplicate {
		if s.metrics != nil {
			s.metrics.WebhookDuplicates.Add(ctx, 1)
		}
		return result, nil
	}
	if result.StatusChanged && result.NewStatus == entities.PaymentStatusCaptured && s.metrics != nil {
		s.metrics.CaptureCount.Add(ctx, 1)
	}
	if result.StatusChanged && result.NewStatus == entities.PaymentStatusRefunded && s.metrics != nil {
		s.metrics.RefundCount.Add(ctx, 1)
	}

	if result.ReceiptDue {
		s.sendReceipt(ctx, payment, providerPaymentID)
	}
	return result, nil
}

// sendReceipt renders the receipt PDF and hands it to the notifier. Runs
// after the capture committed; failure is logged, never propagated.
func (s *PaymentService) sendReceipt(ctx context.Context, payment *entities.Payment, providerPaymentID string) {
	if s.notifier == nil || s.receipts == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)

	customer, err := s.customerRepo.GetByID(ctx, payment.TenantID, payment.CustomerID)
	if err != nil {
		logger.Error().Err(err).Str("payment_id", payment.ID).
			Msg("failed to load customer for receipt")
		return
	}
	if customer.Email == "" {
		return
	}

	captured := *payment
	captured.Status = entities.PaymentStatusCaptured
	if providerPaymentID != "" {
		captured.ProviderPaymentID = &providerPaymentID
	}
	pdf, err := s.receipts.Generate(&captured, customer)
	if err != nil {
		logger.Error().Err(err).Str("payment_id", payment.ID).
			Msg("failed to render receipt")
		return
	}

	msg := &providers.Message{
		Type:      providers.NotificationPaymentReceipt,
		Recipient: customer.Email,
		Subject:   "Payment receipt",
		Body: fmt.Sprintf("Hi %s, your payment of %.2f %s was received. The receipt is attached.",
			customer.FullName, payment.Amount, payment.Currency),
		AttachmentName: fmt.Sprintf("receipt-%s.pdf", payment.ID),
		Attachment:     pdf,
	}
	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		logger.Error().Err(err).Str("payment_id", payment.ID).
			Msg("failed to enqueue receipt email")
	}
}

// newEvent builds a payment event row. providerEventID nil means the row is
// local bookkeeping and never collides with webhook dedup.
func (s *PaymentService) newEvent(tenantID *string, eventType string, providerEventID, orderID, paymentID *string, raw map[string]interface{}) *entities.PaymentEvent {
	payload, err := json.Marshal(raw)
	if err != nil {
		payload = []byte("{}")
	}
	return &entities.PaymentEvent{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		Provider:          s.provider.Name(),
		EventType:         eventType,
		ProviderEventID:   providerEventID,
		ProviderOrderID:   orderID,
		ProviderPaymentID: paymentID,
		Payload:           payload,
		CreatedAt:         time.Now(),
	}
}
