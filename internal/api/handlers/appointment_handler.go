package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/florencygajera/CRM-backend/internal/application/services"
)

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	appointments *services.AppointmentService
	availability *services.AvailabilityService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments *services.AppointmentService, availability *services.AvailabilityService) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		availability: availability,
	}
}

// GetAvailability handles GET /api/v1/appointments/availability
func (h *AppointmentHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	stepMin := 15
	if raw := query.Get("slot_step_min"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "slot_step_min must be an integer")
			return
		}
		stepMin = parsed
	}

	var serviceIDs []string
	if raw := query.Get("service_ids"); raw != "" {
		serviceIDs = strings.Split(raw, ",")
	}

	result, err := h.availability.Availability(r.Context(), scope, services.AvailabilityQuery{
		StaffID:     query.Get("staff_id"),
		ServiceIDs:  serviceIDs,
		Day:         query.Get("day"),
		SlotStepMin: stepMin,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	starts := make([]string, 0, len(result.Slots))
	for _, slot := range result.Slots {
		starts = append(starts, slot.Format(time.RFC3339))
	}
	respondWithData(w, http.StatusOK, map[string]interface{}{
		"duration_min": result.DurationMin,
		"slots":        starts,
		"count":        len(starts),
	})
}

// Create handles POST /api/v1/appointments
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	var req services.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	appointment, err := h.appointments.Create(r.Context(), scope, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, appointment)
}

// Update handles PATCH /api/v1/appointments/{id}
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	var req services.UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	appointment, err := h.appointments.Update(r.Context(), scope, id, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, appointment)
}

// Get handles GET /api/v1/appointments/{id}
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	appointment, err := h.appointments.Get(r.Context(), scope, id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, appointment)
}

// List handles GET /api/v1/appointments
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	appointments, err := h.appointments.List(r.Context(), scope)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"count":        len(appointments),
	})
}
