package tabby

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
)

// Verifier authenticates Tabby webhooks with a shared-secret header and then
// re-fetches the payment from the API. The webhook body is only a trigger to
// re-check; a forged or stale body must never drive a money-moving decision.
type Verifier struct {
	secret string
	client *Client
	logger *log.Logger
}

func NewVerifier(sharedSecret string, client *Client, logger *log.Logger) *Verifier {
	return &Verifier{secret: sharedSecret, client: client, logger: logger}
}

// webhookBody tolerates both documented shapes: {"payment": {...}} and the
// flattened payment object.
type webhookBody struct {
	ID      string `json:"id"`
	Payment *struct {
		ID string `json:"id"`
	} `json:"payment"`
}

// Resolve verifies the header token, extracts the payment id and builds the
// normalized event from the authoritative payment state.
func (v *Verifier) Resolve(ctx context.Context, headerToken string, body []byte) (*domain.PaymentEvent, error) {
	if subtle.ConstantTimeCompare([]byte(headerToken), []byte(v.secret)) != 1 {
		return nil, payment.ErrUnauthorized
	}

	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("parse tabby webhook: %w", err)
	}
	paymentID := wb.ID
	if wb.Payment != nil && wb.Payment.ID != "" {
		paymentID = wb.Payment.ID
	}
	if paymentID == "" {
		return nil, fmt.Errorf("tabby webhook carries no payment id")
	}

	p, err := v.client.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return v.normalize(p)
}

// normalize maps an authoritative payment onto the provider-agnostic event.
// A nil event with nil error means the payment is still in CREATED state:
// the customer has not finished the hosted flow, nothing to reconcile yet.
func (v *Verifier) normalize(p *Payment) (*domain.PaymentEvent, error) {
	if strings.EqualFold(p.Status, "created") {
		v.logger.Printf("tabby: payment %s still created, ignoring", p.ID)
		return nil, nil
	}

	status, err := domain.ParseEventStatus(p.Status)
	if err != nil {
		return nil, fmt.Errorf("tabby payment %s status %q: %w", p.ID, p.Status, err)
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("tabby payment %s amount %q: %w", p.ID, p.Amount, err)
	}

	items := make([]domain.OrderItem, 0, len(p.Order.Items))
	for _, it := range p.Order.Items {
		unitPrice, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("tabby payment %s item price %q: %w", p.ID, it.UnitPrice, err)
		}
		items = append(items, domain.OrderItem{
			ProductRef: it.ReferenceID,
			Name:       it.Title,
			UnitPrice:  unitPrice,
			Quantity:   it.Quantity,
			ImageURL:   it.ImageURL,
		})
	}

	ev := &domain.PaymentEvent{
		Provider:          domain.MethodTabby,
		ProviderPaymentID: p.ID,
		ReferenceID:       p.Order.ReferenceID,
		Status:            status,
		Amount:            amount,
		HasAmount:         true,
		Currency:          p.Currency,
		Items:             items,
	}
	if p.ShippingAddress.Address != "" || p.ShippingAddress.City != "" {
		ev.ShippingAddress = &domain.Address{
			Line1:   p.ShippingAddress.Address,
			City:    p.ShippingAddress.City,
			Email:   p.Buyer.Email,
			Phone:   p.Buyer.Phone,
			Country: "United Arab Emirates",
		}
	}
	return ev, nil
}
