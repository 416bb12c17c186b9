// Package tabby integrates the Tabby buy-now-pay-later API: hosted checkout
// sessions, authoritative payment reads, captures and background eligibility
// checks. Tabby ships no Go SDK, so this is a plain HTTP client.
package tabby

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
	BaseURL      string
	SecretKey    string
	MerchantCode string
	Timeout      time.Duration
}

type Client struct {
	baseURL      string
	secretKey    string
	merchantCode string
	httpClient   *http.Client
	logger       *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		secretKey:    cfg.SecretKey,
		merchantCode: cfg.MerchantCode,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

func (c *Client) Method() domain.PaymentMethod {
	return domain.MethodTabby
}

// wire types

type wireAmountItem struct {
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	ReferenceID string `json:"reference_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Category    string `json:"category,omitempty"`
}

type wireBuyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type wireShipping struct {
	City    string `json:"city"`
	Address string `json:"address"`
	Zip     string `json:"zip,omitempty"`
}

type wireBuyerHistory struct {
	RegisteredSince string `json:"registered_since"`
	LoyaltyLevel    int    `json:"loyalty_level"`
}

type wireOrderHistory struct {
	PurchasedAt string `json:"purchased_at"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
}

type wireOrder struct {
	ReferenceID string           `json:"reference_id"`
	Items       []wireAmountItem `json:"items"`
}

type wirePayment struct {
	Amount          string             `json:"amount"`
	Currency        string             `json:"currency"`
	Buyer           wireBuyer          `json:"buyer"`
	ShippingAddress wireShipping       `json:"shipping_address"`
	Order           wireOrder          `json:"order"`
	BuyerHistory    *wireBuyerHistory  `json:"buyer_history,omitempty"`
	OrderHistory    []wireOrderHistory `json:"order_history,omitempty"`
}

type checkoutRequest struct {
	Payment      wirePayment  `json:"payment"`
	Lang         string       `json:"lang"`
	MerchantCode string       `json:"merchant_code"`
	MerchantURLs merchantURLs `json:"merchant_urls"`
}

type merchantURLs struct {
	Success string `json:"success"`
	Cancel  string `json:"cancel"`
	Failure string `json:"failure"`
}

type checkoutResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Payment       struct {
		ID string `json:"id"`
	} `json:"payment"`
	Configuration struct {
		AvailableProducts struct {
			Installments []struct {
				WebURL string `json:"web_url"`
			} `json:"installments"`
		} `json:"available_products"`
	} `json:"configuration"`
}

// Payment is Tabby's authoritative payment object, re-fetched after every
// webhook because the webhook body itself is never trusted for money-moving
// decisions.
type Payment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Order    struct {
		ReferenceID string           `json:"reference_id"`
		Items       []wireAmountItem `json:"items"`
	} `json:"order"`
	Buyer           wireBuyer    `json:"buyer"`
	ShippingAddress wireShipping `json:"shipping_address"`
	Captures        []struct {
		ID string `json:"id"`
	} `json:"captures"`
}

func (c *Client) buildCheckoutRequest(d payment.Draft) checkoutRequest {
	items := make([]wireAmountItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, wireAmountItem{
			Title:       it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			ReferenceID: it.ProductRef,
			ImageURL:    it.ImageURL,
		})
	}
	req := checkoutRequest{
		Payment: wirePayment{
			Amount:   d.Total.StringFixed(2),
			Currency: d.Currency,
			Buyer: wireBuyer{
				Name:  d.Buyer.FirstName + " " + d.Buyer.LastName,
				Email: d.Buyer.Email,
				Phone: d.Buyer.Phone,
			},
			ShippingAddress: wireShipping{
				City:    d.ShippingAddress.City,
				Address: d.ShippingAddress.Line1,
			},
			Order: wireOrder{ReferenceID: d.ReferenceID, Items: items},
		},
		Lang:         "en",
		MerchantCode: c.merchantCode,
		MerchantURLs: merchantURLs{Success: d.SuccessURL, Cancel: d.CancelURL, Failure: d.FailureURL},
	}
	if d.BuyerHistory != nil {
		req.Payment.BuyerHistory = &wireBuyerHistory{
			RegisteredSince: d.BuyerHistory.RegisteredSince.Format(time.RFC3339),
			LoyaltyLevel:    d.BuyerHistory.PaidOrderCount,
		}
		if d.BuyerHistory.PaidOrderCount > 0 {
			req.Payment.OrderHistory = []wireOrderHistory{{
				PurchasedAt: d.BuyerHistory.RegisteredSince.Format(time.RFC3339),
				Amount:      d.BuyerHistory.TotalPaidAmount.StringFixed(2),
				Status:      "complete",
			}}
		}
	}
	return req
}

// CreateSession creates a hosted checkout session and returns the installment
// redirect URL.
func (c *Client) CreateSession(ctx context.Context, d payment.Draft) (*payment.Session, error) {
	var resp checkoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", c.buildCheckoutRequest(d), &resp); err != nil {
		return nil, fmt.Errorf("create tabby checkout: %w", err)
	}
	installments := resp.Configuration.AvailableProducts.Installments
	if resp.Status == "rejected" || len(installments) == 0 || installments[0].WebURL == "" {
		return nil, payment.ErrNoRedirect
	}
	c.logger.Printf("tabby: created session id=%s payment=%s reference=%s", resp.ID, resp.Payment.ID, d.ReferenceID)
	return &payment.Session{SessionID: resp.Payment.ID, RedirectURL: installments[0].WebURL}, nil
}

// CheckEligibility runs the background pre-scoring check. It reuses the
// provider's checkout endpoint (there is no dedicated scoring API) but is a
// logically separate operation: nothing is persisted and the provisional
// session is discarded.
func (c *Client) CheckEligibility(ctx context.Context, d payment.Draft) (bool, error) {
	var resp checkoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", c.buildCheckoutRequest(d), &resp); err != nil {
		return false, fmt.Errorf("tabby eligibility check: %w", err)
	}
	if resp.Status == "rejected" {
		return false, nil
	}
	return len(resp.Configuration.AvailableProducts.Installments) > 0, nil
}

// GetPayment fetches the authoritative payment state by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.doJSON(ctx, http.MethodGet, "/payments/"+paymentID, nil, &p); err != nil {
		return nil, fmt.Errorf("get tabby payment %s: %w", paymentID, err)
	}
	return &p, nil
}

// Capture captures the full authorized amount.
func (c *Client) Capture(ctx context.Context, providerPaymentID string, amount decimal.Decimal, currency string) (string, error) {
	body := map[string]string{"amount": amount.StringFixed(2)}
	var p Payment
	if err := c.doJSON(ctx, http.MethodPost, "/payments/"+providerPaymentID+"/captures", body, &p); err != nil {
		return "", fmt.Errorf("capture tabby payment %s: %w", providerPaymentID, err)
	}
	if len(p.Captures) == 0 {
		return "", fmt.Errorf("capture tabby payment %s: no capture in response", providerPaymentID)
	}
	return p.Captures[len(p.Captures)-1].ID, nil
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
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
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
		return fmt.Errorf("tabby %s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw, 256))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode tabby response: %w", err)
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
