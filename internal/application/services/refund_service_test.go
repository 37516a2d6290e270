package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/florencygajera/CRM-backend/internal/application/services"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

func newRefundService(t *testing.T) (paymentServiceDeps, *services.RefundService) {
	t.Helper()
	deps := newPaymentService(t)
	refunds := services.NewRefundService(deps.service, deps.repo, deps.provider, paymentsConfig())
	return deps, refunds
}

func TestRefundService_Refund(t *testing.T) {
	t.Run("staff role may not refund", func(t *testing.T) {
		_, refunds := newRefundService(t)

		_, err := refunds.Refund(context.Background(), staffScope(), services.RefundRequest{PaymentID: "pay-1"})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})

	t.Run("only captured payments can be refunded", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		for _, status := range []entities.PaymentStatus{
			entities.PaymentStatusCreated,
			entities.PaymentStatusAuthorized,
			entities.PaymentStatusFailed,
			entities.PaymentStatusRefunded,
		} {
			payment := capturedPayment()
			payment.Status = status
			deps.repo.ExpectedCalls = nil
			deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(payment, nil)

			_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})

			require.Error(t, err, "status %s", status)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
		}
	})

	t.Run("already refunded is a precondition failure", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		processed := entities.RefundStatusProcessed
		payment := capturedPayment()
		payment.RefundStatus = &processed
		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(payment, nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
	})

	t.Run("missing provider payment id is a precondition failure", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		payment := capturedPayment()
		payment.ProviderPaymentID = nil
		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(payment, nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePreconditionFailed))
	})

	t.Run("negative amount is a validation error", func(t *testing.T) {
		_, refunds := newRefundService(t)

		_, err := refunds.Refund(context.Background(), managerScope(), services.RefundRequest{
			PaymentID: "pay-1",
			Amount:    -50,
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("amount above the capture is a validation error", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(capturedPayment(), nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{
			PaymentID: "pay-1",
			Amount:    1000,
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("processed refund moves the payment to REFUNDED", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(capturedPayment(), nil)
		deps.provider.On("Refund", mock.Anything, "pay_xyz", int64(0)).
			Return(&providers.ProviderRefund{
				ID:     "rfnd_1",
				Status: entities.RefundStatusProcessed,
				Raw:    map[string]interface{}{"id": "rfnd_1"},
			}, nil)
		deps.repo.On("ApplyEvent", mock.Anything, mock.MatchedBy(func(params repositories.ApplyEventParams) bool {
			return params.Status == entities.PaymentStatusRefunded &&
				params.RefundID == "rfnd_1" &&
				params.RefundStatus == entities.RefundStatusProcessed &&
				params.Event.EventType == "refund.initiated"
		})).Return(repositories.ApplyEventResult{
			StatusChanged: true,
			NewStatus:     entities.PaymentStatusRefunded,
		}, nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})
		require.NoError(t, err)
		deps.repo.AssertExpectations(t)
	})

	t.Run("pending refund records the id and waits for the webhook", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(capturedPayment(), nil)
		deps.provider.On("Refund", mock.Anything, "pay_xyz", int64(0)).
			Return(&providers.ProviderRefund{ID: "rfnd_2", Status: "pending"}, nil)
		deps.repo.On("ApplyEvent", mock.Anything, mock.MatchedBy(func(params repositories.ApplyEventParams) bool {
			return params.Status == entities.PaymentStatus("") &&
				params.RefundID == "rfnd_2" &&
				params.RefundStatus == "pending"
		})).Return(repositories.ApplyEventResult{NewStatus: entities.PaymentStatusCaptured}, nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})
		require.NoError(t, err)
	})

	t.Run("provider failure is recorded as an attempt", func(t *testing.T) {
		deps, refunds := newRefundService(t)
		scope := managerScope()

		deps.repo.On("GetByID", mock.Anything, scope, "pay-1").Return(capturedPayment(), nil)
		deps.provider.On("Refund", mock.Anything, "pay_xyz", int64(0)).
			Return(nil, apperrors.NewExternalError("razorpay refund failed for pay_xyz", nil))
		deps.repo.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *entities.PaymentEvent) bool {
			return e.EventType == "refund.attempt_failed"
		})).Return(nil)

		_, err := refunds.Refund(context.Background(), scope, services.RefundRequest{PaymentID: "pay-1"})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		deps.repo.AssertExpectations(t)
	})
}
