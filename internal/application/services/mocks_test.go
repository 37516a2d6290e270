package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/domain/scheduling"
)

// Mocks

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) CreateBooked(ctx context.Context, appointment *entities.Appointment, lines []entities.AppointmentServiceLine) error {
	args := m.Called(ctx, appointment, lines)
	return args.Error(0)
}

func (m *MockAppointmentRepository) Reschedule(ctx context.Context, scope auth.Context, id string, start, end time.Time) error {
	args := m.Called(ctx, scope, id, start, end)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Cancel(ctx context.Context, scope auth.Context, id string) error {
	args := m.Called(ctx, scope, id)
	return args.Error(0)
}

func (m *MockAppointmentRepository) UpdateNotes(ctx context.Context, scope auth.Context, id string, notes string) error {
	args := m.Called(ctx, scope, id, notes)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListBusy(ctx context.Context, scope auth.Context, staffID string, dayStart, dayEnd time.Time) ([]scheduling.Interval, error) {
	args := m.Called(ctx, scope, staffID, dayStart, dayEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]scheduling.Interval), args.Error(1)
}

func (m *MockAppointmentRepository) List(ctx context.Context, scope auth.Context) ([]*entities.Appointment, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateWithOrder(ctx context.Context, payment *entities.Payment, event *entities.PaymentEvent) error {
	args := m.Called(ctx, payment, event)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, scope auth.Context, id string) (*entities.Payment, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByProviderOrderID(ctx context.Context, tenantID, providerOrderID string) (*entities.Payment, error) {
	args := m.Called(ctx, tenantID, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByProviderOrderIDAnyTenant(ctx context.Context, providerOrderID string) (*entities.Payment, error) {
	args := m.Called(ctx, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ApplyEvent(ctx context.Context, params repositories.ApplyEventParams) (repositories.ApplyEventResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(repositories.ApplyEventResult), args.Error(1)
}

func (m *MockPaymentRepository) RecordEvent(ctx context.Context, event *entities.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPaymentRepository) List(ctx context.Context, scope auth.Context) ([]*entities.Payment, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payment), args.Error(1)
}

type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) ListActiveByIDs(ctx context.Context, tenantID string, ids []string) ([]*entities.Service, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Service), args.Error(1)
}

type MockStaffRepository struct {
	mock.Mock
}

func (m *MockStaffRepository) GetByID(ctx context.Context, tenantID, id string) (*entities.Staff, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Staff), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, tenantID, id string) (*entities.Customer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Customer), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, msg *providers.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockNotifier) ScheduleAt(ctx context.Context, at time.Time, msg *providers.Message) error {
	args := m.Called(ctx, at, msg)
	return args.Error(0)
}

type MockPaymentProvider struct {
	mock.Mock
	name            string
	supportsRefunds bool
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{name: "MOCK", supportsRefunds: true}
}

func (m *MockPaymentProvider) Name() string { return m.name }

func (m *MockPaymentProvider) KeyID() string { return "key_test" }

func (m *MockPaymentProvider) SupportsRefunds() bool { return m.supportsRefunds }

func (m *MockPaymentProvider) CreateOrder(ctx context.Context, params providers.CreateOrderParams) (*providers.ProviderOrder, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ProviderOrder), args.Error(1)
}

func (m *MockPaymentProvider) FetchPayment(ctx context.Context, providerPaymentID string) (*providers.ProviderPayment, error) {
	args := m.Called(ctx, providerPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ProviderPayment), args.Error(1)
}

func (m *MockPaymentProvider) Refund(ctx context.Context, providerPaymentID string, amountMinor int64) (*providers.ProviderRefund, error) {
	args := m.Called(ctx, providerPaymentID, amountMinor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ProviderRefund), args.Error(1)
}

func (m *MockPaymentProvider) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	args := m.Called(rawBody, signature)
	return args.Bool(0)
}

func (m *MockPaymentProvider) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

// Shared fixtures

func managerScope() auth.Context {
	return auth.Context{
		TenantID: "tenant-1",
		BranchID: "branch-1",
		UserID:   "user-1",
		Role:     auth.RoleManager,
	}
}

func staffScope() auth.Context {
	scope := managerScope()
	scope.Role = auth.RoleStaff
	return scope
}
