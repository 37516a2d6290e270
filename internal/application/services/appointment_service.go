package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// reminderLead is how long before the appointment start the reminder fires
const reminderLead = 24 * time.Hour

// AppointmentService handles the booking lifecycle
type AppointmentService struct {
	repo         repositories.AppointmentRepository
	serviceRepo  repositories.ServiceRepository
	customerRepo repositories.CustomerRepository
	notifier     providers.Notifier
	metrics      *observability.Metrics
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	serviceRepo repositories.ServiceRepository,
	customerRepo repositories.CustomerRepository,
	notifier providers.Notifier,
	metrics *observability.Metrics,
) *AppointmentService {
	return &AppointmentService{
		repo:         repo,
		serviceRepo:  serviceRepo,
		customerRepo: customerRepo,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// CreateAppointmentRequest is one booking request
type CreateAppointmentRequest struct {
	CustomerID string    `json:"customer_id"`
	StaffID    string    `json:"staff_id"`
	ServiceIDs []string  `json:"service_ids"`
	StartAt    time.Time `json:"start_at"`
	Notes      string    `json:"notes,omitempty"`
}

// Create books an appointment. The slot is guarded transactionally: when two
// requests race for overlapping slots of the same staff member, exactly one
// succeeds. Confirmation and reminder notifications go out only after the
// booking committed and never fail it.
func (s *AppointmentService) Create(ctx context.Context, scope auth.Context, req CreateAppointmentRequest) (*entities.Appointment, error) {
	if req.CustomerID == "" || req.StaffID == "" {
		return nil, apperrors.NewValidationError("customer_id and staff_id are required")
	}
	if len(req.ServiceIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one service id is required")
	}
	if req.StartAt.IsZero() {
		return nil, apperrors.NewValidationError("start_at is required")
	}
	if req.StartAt.Before(time.Now()) {
		return nil, apperrors.NewValidationError("cannot book an appointment in the past")
	}

	found, err := s.serviceRepo.ListActiveByIDs(ctx, scope.TenantID, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(req.ServiceIDs) {
		return nil, apperrors.NewValidationError("one or more services are unknown or inactive")
	}

	customer, err := s.customerRepo.GetByID(ctx, scope.TenantID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	var totalMin int
	var totalPrice float64
	now := time.Now()
	appointmentID := uuid.New().String()
	lines := make([]entities.AppointmentServiceLine, 0, len(found))
	for _, svc := range found {
		totalMin += svc.DurationMin
		totalPrice += svc.Price
		lines = append(lines, entities.AppointmentServiceLine{
			ID:                  uuid.New().String(),
			TenantID:            scope.TenantID,
			AppointmentID:       appointmentID,
			ServiceID:           svc.ID,
			PriceSnapshot:       svc.Price,
			DurationSnapshotMin: svc.DurationMin,
		})
	}
	if totalMin <= 0 {
		return nil, apperrors.NewValidationError("selected services have no duration")
	}

	appointment := &entities.Appointment{
		ID:            appointmentID,
		TenantID:      scope.TenantID,
		BranchID:      scope.BranchID,
		CustomerID:    req.CustomerID,
		StaffID:       req.StaffID,
		StartAt:       req.StartAt,
		EndAt:         req.StartAt.Add(time.Duration(totalMin) * time.Minute),
		Status:        entities.AppointmentStatusConfirmed,
		PaymentStatus: entities.AppointmentUnpaid,
		AmountDue:     totalPrice,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateBooked(ctx, appointment, lines); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) && s.metrics != nil {
			s.metrics.SlotConflictCount.Add(ctx, 1)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BookingCount.Add(ctx, 1)
	}

	s.notifyBooked(ctx, appointment, customer)
	return appointment, nil
}

// UpdateAppointmentRequest is a partial appointment update. Exactly one of
// the groups applies: cancel, reschedule, or notes.
type UpdateAppointmentRequest struct {
	Status  *string    `json:"status,omitempty"`
	StartAt *time.Time `json:"start_at,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
}

// Update patches an appointment. Cancelling is terminal; rescheduling keeps
// the booked duration and re-runs the conflict guard with the appointment
// itself excluded.
func (s *AppointmentService) Update(ctx context.Context, scope auth.Context, id string, req UpdateAppointmentRequest) (*entities.Appointment, error) {
	existing, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	switch {
	case req.Status != nil:
		if *req.Status != string(entities.AppointmentStatusCancelled) {
			return nil, apperrors.NewValidationError("only status CANCELLED may be set directly")
		}
		if existing.Status == entities.AppointmentStatusCancelled {
			return nil, apperrors.NewValidationError("appointment is already cancelled")
		}
		if err := s.repo.Cancel(ctx, scope, id); err != nil {
			return nil, err
		}

	case req.StartAt != nil:
		if existing.Status == entities.AppointmentStatusCancelled {
			return nil, apperrors.NewValidationError("cannot reschedule a cancelled appointment")
		}
		newStart := *req.StartAt
		if newStart.Before(time.Now()) {
			return nil, apperrors.NewValidationError("cannot reschedule into the past")
		}
		newEnd := newStart.Add(existing.Duration())
		if err := s.repo.Reschedule(ctx, scope, id, newStart, newEnd); err != nil {
			return nil, err
		}

	case req.Notes != nil:
		if err := s.repo.UpdateNotes(ctx, scope, id, *req.Notes); err != nil {
			return nil, err
		}

	default:
		return nil, apperrors.NewValidationError("nothing to update")
	}

	return s.repo.GetByID(ctx, scope, id)
}

// Get retrieves a single appointment in scope
func (s *AppointmentService) Get(ctx context.Context, scope auth.Context, id string) (*entities.Appointment, error) {
	return s.repo.GetByID(ctx, scope, id)
}

// List returns the scope's appointments
func (s *AppointmentService) List(ctx context.Context, scope auth.Context) ([]*entities.Appointment, error) {
	return s.repo.List(ctx, scope)
}

// notifyBooked enqueues the confirmation and the reminder. Failures are
// logged and dropped; the booking already committed.
func (s *AppointmentService) notifyBooked(ctx context.Context, appointment *entities.Appointment, customer *entities.Customer) {
	if s.notifier == nil || customer.Email == "" {
		return
	}
	logger := observability.LoggerFromContext(ctx)

	confirmation := &providers.Message{
		Type:      providers.NotificationBookingConfirmation,
		Recipient: customer.Email,
		Subject:   "Your booking is confirmed",
		Body: fmt.Sprintf("Hi %s, your appointment on %s is confirmed.",
			customer.FullName, appointment.StartAt.Format(time.RFC1123)),
	}
	if err := s.notifier.Enqueue(ctx, confirmation); err != nil {
		logger.Error().Err(err).Str("appointment_id", appointment.ID).
			Msg("failed to enqueue booking confirmation")
	}

	reminderAt := appointment.StartAt.Add(-reminderLead)
	reminder := &providers.Message{
		Type:      providers.NotificationBookingReminder,
		Recipient: customer.Email,
		Subject:   "Appointment reminder",
		Body: fmt.Sprintf("Hi %s, a reminder for your appointment on %s.",
			customer.FullName, appointment.StartAt.Format(time.RFC1123)),
	}
	if err := s.notifier.ScheduleAt(ctx, reminderAt, reminder); err != nil {
		logger.Error().Err(err).Str("appointment_id", appointment.ID).
			Msg("failed to schedule booking reminder")
	}
}
