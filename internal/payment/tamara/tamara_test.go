package tamara

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:         srv.URL,
		APIToken:        "api_token",
		NotificationURL: "https://api.montres.example/webhook/tamara",
		Timeout:         2 * time.Second,
	}, testLogger())
}

func draft() payment.Draft {
	return payment.Draft{
		OrderID:     "order-1",
		ReferenceID: "tamara_ref",
		Items: []domain.OrderItem{
			{ProductRef: "MT-001", Name: "Chronograph", UnitPrice: decimal.NewFromInt(220), Quantity: 1},
		},
		Subtotal:    decimal.NewFromInt(220),
		ShippingFee: decimal.NewFromInt(30),
		Total:       decimal.NewFromInt(250),
		Currency:    "AED",
		Buyer:       payment.Buyer{FirstName: "Dana", LastName: "M", Email: "dana@example.com", Phone: "+971500000000"},
		ShippingAddress: domain.Address{
			Line1: "12 Marina Walk", City: "Dubai", Country: "United Arab Emirates",
		},
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
		FailureURL: "https://shop.example/failure",
	}
}

func TestCreateSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/checkout", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer api_token" {
			t.Errorf("authorization header = %q", got)
		}
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.OrderReferenceID != "tamara_ref" {
			t.Errorf("order reference = %q", req.OrderReferenceID)
		}
		if req.TotalAmount.Amount != "250.00" || req.TotalAmount.Currency != "AED" {
			t.Errorf("total = %+v", req.TotalAmount)
		}
		if req.CountryCode != "AE" {
			t.Errorf("country code = %q", req.CountryCode)
		}
		if req.PaymentType != "PAY_BY_INSTALMENTS" || req.Instalments != 3 {
			t.Errorf("payment type = %q / %d", req.PaymentType, req.Instalments)
		}
		// Status notifications must target our webhook route, not any of the
		// customer-facing redirect pages.
		if req.MerchantURL.Notification != "https://api.montres.example/webhook/tamara" {
			t.Errorf("notification url = %q", req.MerchantURL.Notification)
		}
		if req.MerchantURL.Failure != "https://shop.example/failure" {
			t.Errorf("failure url = %q", req.MerchantURL.Failure)
		}
		io.WriteString(w, `{"order_id": "tam-1", "checkout_id": "chk-1", "checkout_url": "https://checkout.tamara.co/chk-1"}`)
	})
	client := testClient(t, mux)

	sess, err := client.CreateSession(context.Background(), draft())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.SessionID != "tam-1" {
		t.Fatalf("session id = %q", sess.SessionID)
	}
	if sess.RedirectURL != "https://checkout.tamara.co/chk-1" {
		t.Fatalf("redirect url = %q", sess.RedirectURL)
	}
}

func TestCreateSession_NoCheckoutURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/checkout", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"order_id": "tam-1", "checkout_id": "chk-1"}`)
	})
	client := testClient(t, mux)

	if _, err := client.CreateSession(context.Background(), draft()); !errors.Is(err, payment.ErrNoRedirect) {
		t.Fatalf("expected ErrNoRedirect, got %v", err)
	}
}

func TestCapture(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/tam-1/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		io.WriteString(w, `{"capture_id": "cap-9"}`)
	})
	client := testClient(t, mux)

	captureID, err := client.Capture(context.Background(), "tam-1", decimal.NewFromInt(250), "AED")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if captureID != "cap-9" {
		t.Fatalf("capture id = %q", captureID)
	}
}

func TestVerify_BadToken(t *testing.T) {
	v := NewVerifier("notify_token", testLogger())
	_, err := v.Verify("wrong", []byte(`{"order_id": "tam-1", "event_type": "order_approved"}`))
	if !errors.Is(err, payment.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_EventTypes(t *testing.T) {
	v := NewVerifier("notify_token", testLogger())

	cases := []struct {
		eventType string
		want      domain.EventStatus
	}{
		{"order_approved", domain.EventAuthorized},
		{"order_authorised", domain.EventAuthorized},
		{"order_captured", domain.EventPaid},
		{"order_declined", domain.EventFailed},
		{"order_expired", domain.EventExpired},
		{"order_canceled", domain.EventCancelled},
		{"order_refunded", domain.EventRefunded},
	}
	for _, tc := range cases {
		body := []byte(`{"order_id": "tam-1", "order_reference_id": "tamara_ref", "event_type": "` + tc.eventType + `"}`)
		ev, err := v.Verify("notify_token", body)
		if err != nil {
			t.Fatalf("%s: %v", tc.eventType, err)
		}
		if ev.Status != tc.want {
			t.Fatalf("%s: status = %s, want %s", tc.eventType, ev.Status, tc.want)
		}
		if ev.ProviderPaymentID != "tam-1" || ev.ReferenceID != "tamara_ref" {
			t.Fatalf("%s: identifiers = %q / %q", tc.eventType, ev.ProviderPaymentID, ev.ReferenceID)
		}
		if ev.HasAmount {
			t.Fatalf("%s: amount reported without total_amount in the body", tc.eventType)
		}
	}
}

func TestVerify_AmountParsed(t *testing.T) {
	v := NewVerifier("notify_token", testLogger())

	body := []byte(`{
		"order_id": "tam-1",
		"order_reference_id": "tamara_ref",
		"event_type": "order_captured",
		"data": {"total_amount": {"amount": "250.00", "currency": "AED"}}
	}`)
	ev, err := v.Verify("notify_token", body)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ev.HasAmount {
		t.Fatalf("amount not marked as reported")
	}
	if !ev.Amount.Equal(decimal.NewFromInt(250)) || ev.Currency != "AED" {
		t.Fatalf("amount = %s %s", ev.Amount, ev.Currency)
	}
}

func TestVerify_UnknownEventType(t *testing.T) {
	v := NewVerifier("notify_token", testLogger())
	_, err := v.Verify("notify_token", []byte(`{"order_id": "tam-1", "event_type": "order_shipment_updated"}`))
	if !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestCountryCode(t *testing.T) {
	cases := map[string]string{
		"United Arab Emirates": "AE",
		"Saudi Arabia":         "SA",
		"KW":                   "KW",
		"Kuwait":               "KW",
		"Germany":              "AE",
	}
	for country, want := range cases {
		if got := countryCode(country); got != want {
			t.Fatalf("countryCode(%q) = %q, want %q", country, got, want)
		}
	}
}
