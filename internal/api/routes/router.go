package routes

import (
	"net/http"

	"github.com/florencygajera/CRM-backend/internal/api/handlers"
	"github.com/florencygajera/CRM-backend/internal/api/middleware"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler *handlers.AppointmentHandler
	paymentHandler     *handlers.PaymentHandler
	webhookHandler     *handlers.WebhookHandler

	jwtSecret string
	metrics   *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	paymentHandler *handlers.PaymentHandler,
	webhookHandler *handlers.WebhookHandler,
	jwtSecret string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		appointmentHandler: appointmentHandler,
		paymentHandler:     paymentHandler,
		webhookHandler:     webhookHandler,

		jwtSecret: jwtSecret,
		metrics:   metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Provider webhook endpoint. Authenticated by HMAC signature, not JWT,
	// so it stays outside the auth group.
	r.mux.HandleFunc("POST /api/v1/payments/razorpay/webhook", r.webhookHandler.Handle)

	// Tenant-scoped endpoints behind JWT auth

	auth := middleware.AuthMiddleware(r.jwtSecret)
	protected := http.NewServeMux()

	// Appointment endpoints

	protected.HandleFunc("GET /api/v1/appointments/availability", r.appointmentHandler.GetAvailability)
	protected.HandleFunc("POST /api/v1/appointments", r.appointmentHandler.Create)
	protected.HandleFunc("GET /api/v1/appointments", r.appointmentHandler.List)
	protected.HandleFunc("GET /api/v1/appointments/{id}", r.appointmentHandler.Get)
	protected.HandleFunc("PATCH /api/v1/appointments/{id}", r.appointmentHandler.Update)

	// Payment endpoints

	protected.HandleFunc("POST /api/v1/payments/razorpay/order", r.paymentHandler.CreateOrder)
	protected.HandleFunc("POST /api/v1/payments/razorpay/verify", r.paymentHandler.VerifyCheckout)
	protected.HandleFunc("POST /api/v1/payments/razorpay/refund", r.paymentHandler.Refund)
	protected.HandleFunc("GET /api/v1/payments", r.paymentHandler.List)

	r.mux.Handle("/api/v1/", auth(protected))

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS wraps everything so headers are present even on auth failures.

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
