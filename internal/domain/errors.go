package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrUnknownStatus indicates a provider status outside the known vocabulary.
	ErrUnknownStatus = errors.New("unknown payment status")

	// ErrUnknownPaymentMethod indicates an unsupported payment method.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrAmountMismatch indicates a webhook amount that disagrees with the
	// stored order total. Treated as a fraud/bug signal, never auto-resolved.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrCheckoutInit indicates checkout-session creation failed before any
	// payment was attempted.
	ErrCheckoutInit = errors.New("checkout initialization failed")
)
