package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EventStatus is the normalized payment-event status. Each webhook verifier
// parses its provider's raw status into this closed set; anything it cannot
// place maps to ErrUnknownStatus instead of silently falling through.
type EventStatus string

const (
	EventAuthorized EventStatus = "authorized"
	EventPaid       EventStatus = "paid"
	EventFailed     EventStatus = "failed"
	EventRejected   EventStatus = "rejected"
	EventExpired    EventStatus = "expired"
	EventCancelled  EventStatus = "cancelled"
	EventRefunded   EventStatus = "refunded"
)

// ParseEventStatus folds lowercased provider vocabulary onto EventStatus.
// "closed" and "captured" are synonyms for paid.
func ParseEventStatus(raw string) (EventStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "authorized", "authorised", "approved":
		return EventAuthorized, nil
	case "paid", "closed", "captured", "complete", "completed", "succeeded":
		return EventPaid, nil
	case "failed", "declined":
		return EventFailed, nil
	case "rejected":
		return EventRejected, nil
	case "expired":
		return EventExpired, nil
	case "cancelled", "canceled":
		return EventCancelled, nil
	case "refunded":
		return EventRefunded, nil
	}
	return "", ErrUnknownStatus
}

// IsFailure reports whether the status belongs to the terminal failure family.
func (s EventStatus) IsFailure() bool {
	switch s {
	case EventFailed, EventRejected, EventExpired, EventCancelled:
		return true
	}
	return false
}

// PaymentEvent is a provider-agnostic webhook notification after signature
// verification and status normalization.
type PaymentEvent struct {
	Provider          PaymentMethod
	ProviderPaymentID string
	ReferenceID       string
	Status            EventStatus
	Amount            decimal.Decimal
	// HasAmount distinguishes a reported amount of zero from no reported
	// amount at all. Some notifications carry no amount; a literal zero is
	// still cross-checked against the order total.
	HasAmount bool
	Currency  string

	// Reconstruction payload, set only when the provider embeds enough data
	// to build an order that was never persisted locally.
	Items           []OrderItem
	UserID          *string
	ShippingAddress *Address
	BillingAddress  *Address
}

// CanReconstruct reports whether the event carries enough payload to build an
// order from scratch.
func (e PaymentEvent) CanReconstruct() bool {
	return len(e.Items) > 0 && e.ReferenceID != ""
}
