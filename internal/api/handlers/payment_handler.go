package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/florencygajera/CRM-backend/internal/application/services"
)

// PaymentHandler handles payment order, verification and refund requests
type PaymentHandler struct {
	payments *services.PaymentService
	refunds  *services.RefundService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, refunds *services.RefundService) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		refunds:  refunds,
	}
}

// CreateOrder handles POST /api/v1/payments/razorpay/order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	resp, err := h.payments.CreateOrder(r.Context(), scope, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusCreated, resp)
}

// VerifyCheckout handles POST /api/v1/payments/razorpay/verify
func (h *PaymentHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	var req services.VerifyCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payment, err := h.payments.VerifyCheckout(r.Context(), scope, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, payment)
}

// Refund handles POST /api/v1/payments/razorpay/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	var req services.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payment, err := h.refunds.Refund(r.Context(), scope, req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, payment)
}

// List handles GET /api/v1/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.List(r.Context(), scope)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}
