// Package payments holds the pure payment state machine: the forward-only
// status ordering and the fixed mapping onto appointment payment status.
package payments

import (
	"github.com/florencygajera/CRM-backend/internal/domain/entities"
)

// rank orders the happy-path chain. FAILED and unknown states sit outside
// the chain and are handled explicitly in CanTransition.
var rank = map[entities.PaymentStatus]int{
	entities.PaymentStatusCreated:    0,
	entities.PaymentStatusAuthorized: 1,
	entities.PaymentStatusCaptured:   2,
	entities.PaymentStatusRefunded:   3,
}

// CanTransition reports whether moving from one status to another is forward
// progress. Stale or duplicate events (same status, or a lower-ranked one)
// are not errors, merely no-ops for the caller.
func CanTransition(from, to entities.PaymentStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case entities.PaymentStatusFailed, entities.PaymentStatusRefunded:
		// terminal
		return false
	}
	if to == entities.PaymentStatusFailed {
		return from == entities.PaymentStatusCreated || from == entities.PaymentStatusAuthorized
	}
	toRank, ok := rank[to]
	if !ok {
		return false
	}
	return toRank > rank[from]
}

// NormalizeProviderStatus maps a provider-reported status string onto the
// local payment status. Unrecognized statuses are reported as not ok and
// must not drive a transition.
func NormalizeProviderStatus(s string) (entities.PaymentStatus, bool) {
	switch s {
	case "authorized":
		return entities.PaymentStatusAuthorized, true
	case "captured":
		return entities.PaymentStatusCaptured, true
	case "failed":
		return entities.PaymentStatusFailed, true
	case "refunded":
		return entities.PaymentStatusRefunded, true
	default:
		return "", false
	}
}

// AppointmentStatusFor returns the appointment payment status implied by a
// payment status. AUTHORIZED and CREATED do not touch the appointment.
func AppointmentStatusFor(s entities.PaymentStatus) (entities.AppointmentPaymentStatus, bool) {
	switch s {
	case entities.PaymentStatusCaptured:
		return entities.AppointmentPaid, true
	case entities.PaymentStatusFailed:
		return entities.AppointmentPayFailed, true
	case entities.PaymentStatusRefunded:
		return entities.AppointmentRefunded, true
	default:
		return "", false
	}
}

// Open reports whether a payment row is still an in-flight attempt.
// Order creation refuses a new attempt while one is open.
func Open(s entities.PaymentStatus) bool {
	return s == entities.PaymentStatusCreated || s == entities.PaymentStatusAuthorized
}
