package tamara

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
)

// Verifier authenticates Tamara notifications with the configured
// notification token carried in a request header.
type Verifier struct {
	token  string
	logger *log.Logger
}

func NewVerifier(notificationToken string, logger *log.Logger) *Verifier {
	return &Verifier{token: notificationToken, logger: logger}
}

type webhookBody struct {
	OrderID          string `json:"order_id"`
	OrderReferenceID string `json:"order_reference_id"`
	EventType        string `json:"event_type"`
	Data             struct {
		TotalAmount *wireAmount `json:"total_amount"`
	} `json:"data"`
}

// Verify checks the header token and normalizes the notification. Tamara
// event types look like "order_approved"; the prefix is stripped before
// status parsing.
func (v *Verifier) Verify(headerToken string, body []byte) (*domain.PaymentEvent, error) {
	if subtle.ConstantTimeCompare([]byte(headerToken), []byte(v.token)) != 1 {
		return nil, payment.ErrUnauthorized
	}

	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("parse tamara webhook: %w", err)
	}
	if wb.OrderID == "" && wb.OrderReferenceID == "" {
		return nil, fmt.Errorf("tamara webhook carries no order identifiers")
	}

	raw := strings.TrimPrefix(strings.ToLower(wb.EventType), "order_")
	status, err := domain.ParseEventStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("tamara event %q: %w", wb.EventType, err)
	}

	ev := &domain.PaymentEvent{
		Provider:          domain.MethodTamara,
		ProviderPaymentID: wb.OrderID,
		ReferenceID:       wb.OrderReferenceID,
		Status:            status,
	}
	if wb.Data.TotalAmount != nil {
		amount, err := decimal.NewFromString(wb.Data.TotalAmount.Amount)
		if err != nil {
			return nil, fmt.Errorf("tamara amount %q: %w", wb.Data.TotalAmount.Amount, err)
		}
		ev.Amount = amount
		ev.HasAmount = true
		ev.Currency = wb.Data.TotalAmount.Currency
	}
	return ev, nil
}
