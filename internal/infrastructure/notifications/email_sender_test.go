package notifications

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/florencygajera/CRM-backend/pkg/config"
)

func TestEmailSender_Send(t *testing.T) {
	t.Run("no smtp host skips delivery", func(t *testing.T) {
		sender := NewEmailSender(&config.SMTPConfig{From: "noreply@example.com"})

		err := sender.Send("customer@example.com", "Receipt", "body", "receipt.pdf", []byte("pdf"))

		require.NoError(t, err)
	})
}
