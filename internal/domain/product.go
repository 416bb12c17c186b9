package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. Orders never reference it live; checkout copies
// the price into an OrderItem snapshot.
type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
