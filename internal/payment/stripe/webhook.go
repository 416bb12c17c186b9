package stripe

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Verifier authenticates Stripe webhooks. The signature covers the raw,
// unparsed request body; the route feeding this must not run the payload
// through any body-parsing middleware first.
type Verifier struct {
	secret string
	logger *log.Logger
}

func NewVerifier(webhookSecret string, logger *log.Logger) *Verifier {
	return &Verifier{secret: webhookSecret, logger: logger}
}

// Verify checks the stripe-signature header against the raw body and
// normalizes the event. A nil event with nil error means the event type is
// authentic but not one we act on.
func (v *Verifier) Verify(body []byte, sigHeader string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(body, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrUnauthorized, err)
	}
	return v.normalize(event)
}

func (v *Verifier) normalize(event stripeapi.Event) (*domain.PaymentEvent, error) {
	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return v.sessionEvent(event, domain.EventPaid)
	case "checkout.session.async_payment_failed":
		return v.sessionEvent(event, domain.EventFailed)
	case "checkout.session.expired":
		return v.sessionEvent(event, domain.EventExpired)
	case "charge.refunded":
		return v.chargeRefunded(event)
	}
	v.logger.Printf("stripe: ignoring event type=%s id=%s", event.Type, event.ID)
	return nil, nil
}

func (v *Verifier) sessionEvent(event stripeapi.Event, status domain.EventStatus) (*domain.PaymentEvent, error) {
	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}

	// completed fires for async methods before the money moves; only a paid
	// session is a paid event.
	if status == domain.EventPaid && sess.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		v.logger.Printf("stripe: session %s completed but payment_status=%s, awaiting async result", sess.ID, sess.PaymentStatus)
		return nil, nil
	}

	referenceID := sess.ClientReferenceID
	if referenceID == "" {
		referenceID = sess.Metadata["referenceId"]
	}
	paymentID := sess.ID
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	return &domain.PaymentEvent{
		Provider:          domain.MethodStripe,
		ProviderPaymentID: paymentID,
		ReferenceID:       referenceID,
		Status:            status,
		Amount:            decimal.New(sess.AmountTotal, -2),
		HasAmount:         true,
		Currency:          strings.ToUpper(string(sess.Currency)),
	}, nil
}

func (v *Verifier) chargeRefunded(event stripeapi.Event) (*domain.PaymentEvent, error) {
	var ch stripeapi.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal charge: %w", err)
	}
	paymentID := ch.ID
	if ch.PaymentIntent != nil {
		paymentID = ch.PaymentIntent.ID
	}
	return &domain.PaymentEvent{
		Provider:          domain.MethodStripe,
		ProviderPaymentID: paymentID,
		Status:            domain.EventRefunded,
		Amount:            decimal.New(ch.Amount, -2),
		HasAmount:         true,
		Currency:          strings.ToUpper(string(ch.Currency)),
	}, nil
}
