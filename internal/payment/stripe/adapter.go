// Package stripe adapts the internal checkout representation to Stripe
// hosted Checkout Sessions. Stripe is the only provider where we control the
// correlation key explicitly, via session metadata set at creation time.
package stripe

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
)

var hundred = decimal.NewFromInt(100)

// minorUnits converts a decimal major-unit amount to Stripe's integer
// smallest-currency-unit representation.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

type Adapter struct {
	api    *stripeclient.API
	logger *log.Logger
}

func NewAdapter(secretKey string, timeout time.Duration, logger *log.Logger) *Adapter {
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	api := &stripeclient.API{}
	api.Init(secretKey, &stripeapi.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Adapter{api: api, logger: logger}
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.MethodStripe
}

func (a *Adapter) CreateSession(ctx context.Context, d payment.Draft) (*payment.Session, error) {
	lineItems := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(d.Items)+1)
	for _, item := range d.Items {
		productData := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = stripeapi.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(int64(item.Quantity)),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(d.Currency),
				UnitAmount:  stripeapi.Int64(minorUnits(item.UnitPrice)),
				ProductData: productData,
			},
		})
	}
	if d.ShippingFee.IsPositive() {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(d.Currency),
				UnitAmount: stripeapi.Int64(minorUnits(d.ShippingFee)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String("Shipping"),
				},
			},
		})
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL:        stripeapi.String(d.SuccessURL),
		CancelURL:         stripeapi.String(d.CancelURL),
		ClientReferenceID: stripeapi.String(d.ReferenceID),
		CustomerEmail:     stripeapi.String(d.Buyer.Email),
		LineItems:         lineItems,
	}
	params.Context = ctx
	params.AddMetadata("orderId", d.OrderID)
	params.AddMetadata("referenceId", d.ReferenceID)

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	if sess.URL == "" {
		return nil, payment.ErrNoRedirect
	}
	a.logger.Printf("stripe: created checkout session id=%s reference=%s", sess.ID, d.ReferenceID)
	return &payment.Session{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}
