package handlers

import (
	"io"
	"net/http"

	"github.com/florencygajera/CRM-backend/internal/application/services"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
)

// maxWebhookBody bounds webhook payload reads
const maxWebhookBody = 1 << 20

// WebhookHandler handles provider webhook deliveries. The route is
// unauthenticated; the body signature is the only gate.
type WebhookHandler struct {
	webhooks *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Handle handles POST /api/v1/payments/razorpay/webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	eventID := r.Header.Get("X-Razorpay-Event-Id")

	if err := h.webhooks.Ingest(r.Context(), rawBody, signature, eventID); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).
			Str("event_id", eventID).Msg("webhook rejected")
		respondWithAppError(w, err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]string{"status": "ok"})
}
