package stripe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test_secret"

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// signedHeader builds a stripe-signature header the way Stripe's CLI does for
// test payloads.
func signedHeader(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func sessionPayload(eventType, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "%s",
		"data": {
			"object": {
				"id": "cs_1",
				"object": "checkout.session",
				"client_reference_id": "stripe_ref",
				"payment_status": "%s",
				"amount_total": 25000,
				"currency": "aed"
			}
		}
	}`, eventType, paymentStatus))
}

func TestVerify_BadSignature(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := sessionPayload("checkout.session.completed", "paid")

	_, err := v.Verify(payload, "t=1,v1=deadbeef")
	if !errors.Is(err, payment.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_CompletedPaidSession(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := sessionPayload("checkout.session.completed", "paid")

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected event")
	}
	if ev.Status != domain.EventPaid {
		t.Fatalf("status = %s", ev.Status)
	}
	if ev.ReferenceID != "stripe_ref" {
		t.Fatalf("reference = %q", ev.ReferenceID)
	}
	if !ev.Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("amount = %s", ev.Amount)
	}
	if ev.Currency != "AED" {
		t.Fatalf("currency = %q", ev.Currency)
	}
}

func TestVerify_CompletedUnpaidSessionIgnored(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	// completed arrives before the async payment settles; it must not count
	// as paid yet.
	payload := sessionPayload("checkout.session.completed", "unpaid")

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev != nil {
		t.Fatalf("unpaid completed session produced event %+v", ev)
	}
}

func TestVerify_ExpiredSession(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := sessionPayload("checkout.session.expired", "unpaid")

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev == nil || ev.Status != domain.EventExpired {
		t.Fatalf("event = %+v", ev)
	}
}

func TestVerify_AsyncPaymentFailed(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := sessionPayload("checkout.session.async_payment_failed", "unpaid")

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev == nil || ev.Status != domain.EventFailed {
		t.Fatalf("event = %+v", ev)
	}
}

func TestVerify_IrrelevantEventType(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := []byte(`{"id": "evt_2", "type": "payment_intent.created", "data": {"object": {}}}`)

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev != nil {
		t.Fatalf("irrelevant event produced %+v", ev)
	}
}

func TestVerify_ChargeRefunded(t *testing.T) {
	v := NewVerifier(testSecret, testLogger())
	payload := []byte(`{
		"id": "evt_3",
		"type": "charge.refunded",
		"data": {
			"object": {
				"id": "ch_1",
				"object": "charge",
				"amount": 25000,
				"currency": "aed"
			}
		}
	}`)

	ev, err := v.Verify(payload, signedHeader(payload, testSecret))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ev == nil || ev.Status != domain.EventRefunded {
		t.Fatalf("event = %+v", ev)
	}
	if ev.ProviderPaymentID != "ch_1" {
		t.Fatalf("payment id = %q", ev.ProviderPaymentID)
	}
}
