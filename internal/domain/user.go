package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a line in the user's stored cart.
type CartItem struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

// User represents a registered customer. Guest checkout leaves Order.UserID
// nil and never touches a User row.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Cart         []CartItem `json:"cart,omitempty"`
	RegisteredAt time.Time  `json:"registeredAt"`
}

// BuyerHistory aggregates the local purchase record BNPL providers require
// for risk scoring. Assembled from our own data, never fetched from the
// provider.
type BuyerHistory struct {
	RegisteredSince time.Time
	PaidOrderCount  int
	TotalPaidAmount decimal.Decimal
}
