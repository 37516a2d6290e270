package notifications

import (
	"fmt"
	"io"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog/log"

	"github.com/florencygajera/CRM-backend/pkg/config"
)

// EmailSender delivers notification messages over SMTP. Without a
// configured host it logs the message instead of dialing, so local
// development runs without a mail server.
type EmailSender struct {
	dialer *gomail.Dialer
	host   string
	from   string
}

// NewEmailSender creates an SMTP sender from config
func NewEmailSender(cfg *config.SMTPConfig) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		host:   cfg.Host,
		from:   cfg.From,
	}
}

// Send sends a plain-text email with an optional attachment
func (s *EmailSender) Send(to, subject, body, attachmentName string, attachment []byte) error {
	if s.host == "" {
		log.Info().
			Str("to", to).
			Str("subject", subject).
			Str("attachment", attachmentName).
			Msg("smtp host not configured, skipping email delivery")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if attachmentName != "" && len(attachment) > 0 {
		m.Attach(attachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
