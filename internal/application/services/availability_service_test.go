package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/florencygajera/CRM-backend/internal/application/services"
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/scheduling"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

func activeService(id string, durationMin int) *entities.Service {
	return &entities.Service{
		ID:          id,
		TenantID:    "tenant-1",
		Name:        "Service " + id,
		DurationMin: durationMin,
		Price:       500,
		IsActive:    true,
	}
}

func activeStaff() *entities.Staff {
	return &entities.Staff{
		ID:            "staff-1",
		TenantID:      "tenant-1",
		FullName:      "Asha Patel",
		WorkStartTime: "10:00",
		WorkEndTime:   "18:00",
		IsActive:      true,
	}
}

func TestAvailabilityService_Availability(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	t.Run("skips slots that touch a busy interval", func(t *testing.T) {
		apptRepo := new(MockAppointmentRepository)
		svcRepo := new(MockServiceRepository)
		staffRepo := new(MockStaffRepository)
		service := services.NewAvailabilityService(apptRepo, svcRepo, staffRepo)

		svcRepo.On("ListActiveByIDs", mock.Anything, "tenant-1", []string{"svc-1"}).
			Return([]*entities.Service{activeService("svc-1", 30)}, nil)
		staffRepo.On("GetByID", mock.Anything, "tenant-1", "staff-1").
			Return(activeStaff(), nil)
		busyStart := day.Add(11 * time.Hour)
		apptRepo.On("ListBusy", mock.Anything, mock.Anything, "staff-1", day, day.AddDate(0, 0, 1)).
			Return([]scheduling.Interval{{Start: busyStart, End: busyStart.Add(30 * time.Minute)}}, nil)

		got, err := service.Availability(context.Background(), managerScope(), services.AvailabilityQuery{
			StaffID:     "staff-1",
			ServiceIDs:  []string{"svc-1"},
			Day:         "2026-09-14",
			SlotStepMin: 15,
		})

		require.NoError(t, err)
		assert.Equal(t, 30, got.DurationMin)
		assert.Contains(t, got.Slots, day.Add(10*time.Hour+30*time.Minute))
		assert.NotContains(t, got.Slots, day.Add(10*time.Hour+45*time.Minute))
		assert.NotContains(t, got.Slots, day.Add(11*time.Hour))
		assert.NotContains(t, got.Slots, day.Add(11*time.Hour+15*time.Minute))
		assert.Contains(t, got.Slots, day.Add(11*time.Hour+30*time.Minute))
	})

	t.Run("sums multiple service durations", func(t *testing.T) {
		apptRepo := new(MockAppointmentRepository)
		svcRepo := new(MockServiceRepository)
		staffRepo := new(MockStaffRepository)
		service := services.NewAvailabilityService(apptRepo, svcRepo, staffRepo)

		svcRepo.On("ListActiveByIDs", mock.Anything, "tenant-1", []string{"svc-1", "svc-2"}).
			Return([]*entities.Service{activeService("svc-1", 45), activeService("svc-2", 30)}, nil)
		staffRepo.On("GetByID", mock.Anything, "tenant-1", "staff-1").
			Return(activeStaff(), nil)
		apptRepo.On("ListBusy", mock.Anything, mock.Anything, "staff-1", day, day.AddDate(0, 0, 1)).
			Return([]scheduling.Interval{}, nil)

		got, err := service.Availability(context.Background(), managerScope(), services.AvailabilityQuery{
			StaffID:     "staff-1",
			ServiceIDs:  []string{"svc-1", "svc-2"},
			Day:         "2026-09-14",
			SlotStepMin: 15,
		})

		require.NoError(t, err)
		// 75 minutes total: the last fitting start is 16:45.
		assert.Equal(t, 75, got.DurationMin)
		assert.Contains(t, got.Slots, day.Add(16*time.Hour+45*time.Minute))
		assert.NotContains(t, got.Slots, day.Add(17*time.Hour))
	})

	t.Run("duration longer than the window yields empty", func(t *testing.T) {
		apptRepo := new(MockAppointmentRepository)
		svcRepo := new(MockServiceRepository)
		staffRepo := new(MockStaffRepository)
		service := services.NewAvailabilityService(apptRepo, svcRepo, staffRepo)

		svcRepo.On("ListActiveByIDs", mock.Anything, "tenant-1", []string{"svc-long"}).
			Return([]*entities.Service{activeService("svc-long", 10*60)}, nil)
		staffRepo.On("GetByID", mock.Anything, "tenant-1", "staff-1").
			Return(activeStaff(), nil)
		apptRepo.On("ListBusy", mock.Anything, mock.Anything, "staff-1", day, day.AddDate(0, 0, 1)).
			Return([]scheduling.Interval{}, nil)

		got, err := service.Availability(context.Background(), managerScope(), services.AvailabilityQuery{
			StaffID:     "staff-1",
			ServiceIDs:  []string{"svc-long"},
			Day:         "2026-09-14",
			SlotStepMin: 30,
		})

		require.NoError(t, err)
		assert.Equal(t, 600, got.DurationMin)
		assert.Empty(t, got.Slots)
	})

	t.Run("rejects malformed input before touching stores", func(t *testing.T) {
		service := services.NewAvailabilityService(
			new(MockAppointmentRepository), new(MockServiceRepository), new(MockStaffRepository))

		cases := []services.AvailabilityQuery{
			{ServiceIDs: []string{"svc-1"}, Day: "2026-09-14", SlotStepMin: 15},
			{StaffID: "staff-1", Day: "2026-09-14", SlotStepMin: 15},
			{StaffID: "staff-1", ServiceIDs: []string{"svc-1"}, Day: "not-a-day", SlotStepMin: 15},
			{StaffID: "staff-1", ServiceIDs: []string{"svc-1"}, Day: "2026-09-14", SlotStepMin: 2},
			{StaffID: "staff-1", ServiceIDs: []string{"svc-1"}, Day: "2026-09-14", SlotStepMin: 90},
		}
		for _, query := range cases {
			_, err := service.Availability(context.Background(), managerScope(), query)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		}
	})

	t.Run("unknown service id is a validation error", func(t *testing.T) {
		apptRepo := new(MockAppointmentRepository)
		svcRepo := new(MockServiceRepository)
		staffRepo := new(MockStaffRepository)
		service := services.NewAvailabilityService(apptRepo, svcRepo, staffRepo)

		svcRepo.On("ListActiveByIDs", mock.Anything, "tenant-1", []string{"svc-1", "svc-ghost"}).
			Return([]*entities.Service{activeService("svc-1", 30)}, nil)

		_, err := service.Availability(context.Background(), managerScope(), services.AvailabilityQuery{
			StaffID:     "staff-1",
			ServiceIDs:  []string{"svc-1", "svc-ghost"},
			Day:         "2026-09-14",
			SlotStepMin: 15,
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}
