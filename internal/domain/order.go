package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies the provider an order was placed with. It is fixed
// at order creation and never changes.
type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodTabby  PaymentMethod = "tabby"
	MethodTamara PaymentMethod = "tamara"
)

// ParsePaymentMethod maps a raw method string onto the closed set.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case MethodStripe, MethodTabby, MethodTamara:
		return PaymentMethod(raw), nil
	}
	return "", ErrUnknownPaymentMethod
}

// PaymentStatus is the state-machine field on the order. Provider synonyms
// such as "closed" or "captured" are folded into Paid at the webhook boundary.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// OrderStatus is the fulfillment-facing status. Expired and Rejected exist so
// the distinct failure families stay visible to operators.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
	OrderExpired    OrderStatus = "Expired"
	OrderRejected   OrderStatus = "Rejected"
)

// Address is an immutable snapshot captured at checkout time. Customers
// editing a saved address later must not alter historical orders.
type Address struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// OrderItem is a price snapshot, not a live catalog reference.
type OrderItem struct {
	ProductRef string          `json:"productRef"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	ImageURL   string          `json:"imageUrl,omitempty"`
}

// Total returns the line total for the snapshotted unit price.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the central aggregate, the single source of truth for payment and
// fulfillment state. It is created pending by the checkout flow and mutated
// exclusively by the reconciliation engine afterwards.
type Order struct {
	ID          string  `json:"id"`
	ReferenceID string  `json:"referenceId"`
	UserID      *string `json:"userId,omitempty"`

	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`

	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`

	ProviderSessionID string `json:"providerSessionId,omitempty"`
	ProviderPaymentID string `json:"providerPaymentId,omitempty"`
	ProviderCaptureID string `json:"providerCaptureId,omitempty"`

	ShippingAddress Address `json:"shippingAddress"`
	BillingAddress  Address `json:"billingAddress"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
