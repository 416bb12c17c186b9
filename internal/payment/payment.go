// Package payment holds the provider-agnostic checkout contracts shared by
// the Stripe, Tabby and Tamara adapters.
package payment

import (
	"context"
	"errors"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrUnauthorized indicates a webhook that failed signature or shared-secret
// verification. Logged for operator review; the event never reaches the
// reconciliation engine.
var ErrUnauthorized = errors.New("webhook authentication failed")

// ErrNoRedirect indicates the provider accepted the session request but
// returned nothing the customer can be redirected to.
var ErrNoRedirect = errors.New("provider returned no redirect url")

// Buyer is the contact profile sent with a checkout session.
type Buyer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Draft is the normalized order handed to a provider adapter. The order row
// behind OrderID already exists in storage (pending) before any adapter call.
type Draft struct {
	OrderID     string
	ReferenceID string

	Items       []domain.OrderItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Currency    string

	Buyer           Buyer
	ShippingAddress domain.Address
	BillingAddress  domain.Address

	// BuyerHistory is assembled from local data for BNPL risk scoring.
	// Nil for guest checkout.
	BuyerHistory *domain.BuyerHistory

	SuccessURL string
	CancelURL  string
	FailureURL string
}

// Session is the provider's answer to session creation.
type Session struct {
	SessionID   string
	RedirectURL string
}

// Provider creates a hosted checkout session for a draft order.
type Provider interface {
	Method() domain.PaymentMethod
	CreateSession(ctx context.Context, d Draft) (*Session, error)
}

// Capturer issues the capture call for an authorized payment. Capture is
// idempotent on the provider side given a stable payment id, so a failed
// call can be retried out-of-band.
type Capturer interface {
	Capture(ctx context.Context, providerPaymentID string, amount decimal.Decimal, currency string) (string, error)
}
