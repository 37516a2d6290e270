package payments

import (
	"strings"

	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/pkg/config"
)

// NewPaymentProvider selects the payment provider from configuration.
// Razorpay without credentials falls back to the mock so dev environments
// work out of the box.
func NewPaymentProvider(cfg *config.RazorpayConfig, provider string) providers.PaymentProvider {
	switch strings.ToUpper(provider) {
	case "RAZORPAY":
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			return NewMockAdapter()
		}
		return NewRazorpayAdapter(cfg.KeyID, cfg.KeySecret, cfg.WebhookSecret)
	default:
		return NewMockAdapter()
	}
}
