// Package tamara integrates the Tamara buy-now-pay-later API. Same flow
// family as Tabby: hosted checkout, authorize-then-capture, webhook
// notifications. No Go SDK exists, so this is a plain HTTP client with the
// API base configurable per environment.
package tamara

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL  string
	APIToken string
	// NotificationURL is this service's webhook endpoint, sent on every
	// checkout as merchant_url.notification. Leave empty when webhooks are
	// registered through the partner dashboard instead.
	NotificationURL string
	Timeout         time.Duration
}

type Client struct {
	baseURL         string
	apiToken        string
	notificationURL string
	httpClient      *http.Client
	logger          *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	return &Client{
		baseURL:         cfg.BaseURL,
		apiToken:        cfg.APIToken,
		notificationURL: cfg.NotificationURL,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		logger:          logger,
	}
}

func (c *Client) Method() domain.PaymentMethod {
	return domain.MethodTamara
}

type wireAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type wireItem struct {
	ReferenceID string     `json:"reference_id"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku"`
	Quantity    int        `json:"quantity"`
	UnitPrice   wireAmount `json:"unit_price"`
	TotalAmount wireAmount `json:"total_amount"`
	ImageURL    string     `json:"image_url,omitempty"`
}

type wireConsumer struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

type wireAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type checkoutRequest struct {
	OrderReferenceID string       `json:"order_reference_id"`
	TotalAmount      wireAmount   `json:"total_amount"`
	ShippingAmount   wireAmount   `json:"shipping_amount"`
	Description      string       `json:"description"`
	CountryCode      string       `json:"country_code"`
	PaymentType      string       `json:"payment_type"`
	Instalments      int          `json:"instalments"`
	Items            []wireItem   `json:"items"`
	Consumer         wireConsumer `json:"consumer"`
	ShippingAddress  wireAddress  `json:"shipping_address"`
	BillingAddress   wireAddress  `json:"billing_address"`
	MerchantURL      merchantURL  `json:"merchant_url"`
}

type merchantURL struct {
	Success      string `json:"success"`
	Failure      string `json:"failure"`
	Cancel       string `json:"cancel"`
	Notification string `json:"notification,omitempty"`
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutID  string `json:"checkout_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateSession creates a Tamara checkout session and returns its hosted
// page URL. The provider-assigned order id is the session identifier.
func (c *Client) CreateSession(ctx context.Context, d payment.Draft) (*payment.Session, error) {
	items := make([]wireItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, wireItem{
			ReferenceID: it.ProductRef,
			Type:        "Physical",
			Name:        it.Name,
			SKU:         it.ProductRef,
			Quantity:    it.Quantity,
			UnitPrice:   wireAmount{Amount: it.UnitPrice.StringFixed(2), Currency: d.Currency},
			TotalAmount: wireAmount{Amount: it.Total().StringFixed(2), Currency: d.Currency},
			ImageURL:    it.ImageURL,
		})
	}

	req := checkoutRequest{
		OrderReferenceID: d.ReferenceID,
		TotalAmount:      wireAmount{Amount: d.Total.StringFixed(2), Currency: d.Currency},
		ShippingAmount:   wireAmount{Amount: d.ShippingFee.StringFixed(2), Currency: d.Currency},
		Description:      "Montres order " + d.ReferenceID,
		CountryCode:      countryCode(d.ShippingAddress.Country),
		PaymentType:      "PAY_BY_INSTALMENTS",
		Instalments:      3,
		Items:            items,
		Consumer: wireConsumer{
			FirstName:   d.Buyer.FirstName,
			LastName:    d.Buyer.LastName,
			PhoneNumber: d.Buyer.Phone,
			Email:       d.Buyer.Email,
		},
		ShippingAddress: toWireAddress(d.ShippingAddress, d.Buyer),
		BillingAddress:  toWireAddress(d.BillingAddress, d.Buyer),
		MerchantURL: merchantURL{
			Success:      d.SuccessURL,
			Failure:      d.FailureURL,
			Cancel:       d.CancelURL,
			Notification: c.notificationURL,
		},
	}

	var resp checkoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", req, &resp); err != nil {
		return nil, fmt.Errorf("create tamara checkout: %w", err)
	}
	if resp.CheckoutURL == "" {
		return nil, payment.ErrNoRedirect
	}
	c.logger.Printf("tamara: created checkout order_id=%s reference=%s", resp.OrderID, d.ReferenceID)
	return &payment.Session{SessionID: resp.OrderID, RedirectURL: resp.CheckoutURL}, nil
}

type captureRequest struct {
	OrderID     string     `json:"order_id"`
	TotalAmount wireAmount `json:"total_amount"`
}

type captureResponse struct {
	CaptureID string `json:"capture_id"`
}

// Capture captures the full authorized amount for a Tamara order.
func (c *Client) Capture(ctx context.Context, providerPaymentID string, amount decimal.Decimal, currency string) (string, error) {
	req := captureRequest{
		OrderID:     providerPaymentID,
		TotalAmount: wireAmount{Amount: amount.StringFixed(2), Currency: currency},
	}
	var resp captureResponse
	if err := c.doJSON(ctx, http.MethodPost, "/orders/"+providerPaymentID+"/capture", req, &resp); err != nil {
		return "", fmt.Errorf("capture tamara order %s: %w", providerPaymentID, err)
	}
	return resp.CaptureID, nil
}

func toWireAddress(a domain.Address, b payment.Buyer) wireAddress {
	first := a.FirstName
	if first == "" {
		first = b.FirstName
	}
	last := a.LastName
	if last == "" {
		last = b.LastName
	}
	return wireAddress{
		FirstName:   first,
		LastName:    last,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		CountryCode: countryCode(a.Country),
		PhoneNumber: a.Phone,
	}
}

// countryCode maps the few country spellings we ship to onto ISO codes,
// defaulting to AE.
func countryCode(country string) string {
	switch {
	case len(country) == 2:
		return country
	case country == "Saudi Arabia", country == "KSA":
		return "SA"
	case country == "Kuwait":
		return "KW"
	case country == "Qatar":
		return "QA"
	case country == "Bahrain":
		return "BH"
	case country == "Oman":
		return "OM"
	default:
		return "AE"
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tamara %s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw, 256))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode tamara response: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
