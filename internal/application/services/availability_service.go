package services

import (
	"context"
	"fmt"
	"time"

	"github.com/florencygajera/CRM-backend/internal/domain/auth"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/domain/scheduling"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// AvailabilityService computes open booking slots for a staff member
type AvailabilityService struct {
	appointmentRepo repositories.AppointmentRepository
	serviceRepo     repositories.ServiceRepository
	staffRepo       repositories.StaffRepository
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	appointmentRepo repositories.AppointmentRepository,
	serviceRepo repositories.ServiceRepository,
	staffRepo repositories.StaffRepository,
) *AvailabilityService {
	return &AvailabilityService{
		appointmentRepo: appointmentRepo,
		serviceRepo:     serviceRepo,
		staffRepo:       staffRepo,
	}
}

// AvailabilityQuery is one slot search request
type AvailabilityQuery struct {
	StaffID     string
	ServiceIDs  []string
	Day         string
	SlotStepMin int
}

// AvailabilityResult carries the open start times plus the total duration
// the requested services occupy
type AvailabilityResult struct {
	DurationMin int
	Slots       []time.Time
}

// Availability lists the start times where the requested services fit into
// the staff member's working window without touching an existing booking.
// An empty slot list is a normal answer, not an error.
func (s *AvailabilityService) Availability(ctx context.Context, scope auth.Context, query AvailabilityQuery) (*AvailabilityResult, error) {
	if query.StaffID == "" {
		return nil, apperrors.NewValidationError("staff_id is required")
	}
	if len(query.ServiceIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one service id is required")
	}
	if query.SlotStepMin < scheduling.MinStepMinutes || query.SlotStepMin > scheduling.MaxStepMinutes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("slot_step_min must be between %d and %d", scheduling.MinStepMinutes, scheduling.MaxStepMinutes))
	}

	day, err := scheduling.ParseDay(query.Day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	duration, err := s.totalDuration(ctx, scope.TenantID, query.ServiceIDs)
	if err != nil {
		return nil, err
	}

	staff, err := s.staffRepo.GetByID(ctx, scope.TenantID, query.StaffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsActive {
		return nil, apperrors.NewValidationError(fmt.Sprintf("staff %s is not active", query.StaffID))
	}

	work, err := scheduling.WorkWindow(day, staff.WorkStartTime, staff.WorkEndTime)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	busy, err := s.appointmentRepo.ListBusy(ctx, scope, query.StaffID,
		day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	step := time.Duration(query.SlotStepMin) * time.Minute
	return &AvailabilityResult{
		DurationMin: int(duration / time.Minute),
		Slots:       scheduling.CollectCandidates(work, busy, duration, step),
	}, nil
}

// totalDuration resolves the tenant's active services and sums their
// durations. Any unknown or inactive id fails the whole request.
func (s *AvailabilityService) totalDuration(ctx context.Context, tenantID string, serviceIDs []string) (time.Duration, error) {
	found, err := s.serviceRepo.ListActiveByIDs(ctx, tenantID, serviceIDs)
	if err != nil {
		return 0, err
	}
	if len(found) != len(serviceIDs) {
		return 0, apperrors.NewValidationError("one or more services are unknown or inactive")
	}

	var totalMin int
	for _, svc := range found {
		if svc.DurationMin <= 0 {
			return 0, apperrors.NewValidationError(fmt.Sprintf("service %s has no duration", svc.ID))
		}
		totalMin += svc.DurationMin
	}
	return time.Duration(totalMin) * time.Minute, nil
}
