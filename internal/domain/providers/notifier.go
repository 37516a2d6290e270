package providers

import (
	"context"
	"time"
)

// Notification message kinds
const (
	NotificationBookingConfirmation = "booking.confirmation"
	NotificationBookingReminder     = "booking.reminder"
	NotificationPaymentReceipt      = "payment.receipt"
)

// Message is one notification hand-off. Delivery, retries and backoff
// belong to the external worker, not the core.
type Message struct {
	Type           string `json:"type"`
	Recipient      string `json:"recipient"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentName string `json:"attachment_name,omitempty"`
	Attachment     []byte `json:"attachment,omitempty"`
}

// Notifier hands messages to the delivery queue. Both calls are
// fire-and-forget from the core's perspective: they are attempted only
// after the owning transaction commits, and their failure never rolls a
// booking or payment back.
type Notifier interface {
	// Enqueue queues a message for immediate delivery
	Enqueue(ctx context.Context, msg *Message) error

	// ScheduleAt queues a message for delivery at a future time
	ScheduleAt(ctx context.Context, at time.Time, msg *Message) error
}
