// Package checkout orchestrates checkout-session creation across the three
// payment providers: snapshot prices, persist the pending order, call the
// provider, and compensate when the provider call fails.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput marks synchronous request-validation failures. No order is
// created for these.
var ErrInvalidInput = errors.New("invalid checkout input")

type orderRepo interface {
	CreatePending(ctx context.Context, o *domain.Order) error
	SetProviderSession(ctx context.Context, id, sessionID string) error
	DeleteByID(ctx context.Context, id string) error
	PaidStatsByUser(ctx context.Context, userID string) (int, decimal.Decimal, error)
}

type productRepo interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type eligibilityChecker interface {
	CheckEligibility(ctx context.Context, d payment.Draft) (bool, error)
}

type Service struct {
	orders    orderRepo
	products  productRepo
	users     userRepo
	providers map[domain.PaymentMethod]payment.Provider
	prescorer eligibilityChecker
	logger    *log.Logger
}

func New(orders orderRepo, products productRepo, users userRepo, providers []payment.Provider, prescorer eligibilityChecker, logger *log.Logger) *Service {
	byMethod := make(map[domain.PaymentMethod]payment.Provider, len(providers))
	for _, p := range providers {
		byMethod[p.Method()] = p
	}
	return &Service{
		orders:    orders,
		products:  products,
		users:     users,
		providers: byMethod,
		prescorer: prescorer,
		logger:    logger,
	}
}

type ItemInput struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

type Input struct {
	UserID          *string        `json:"userId,omitempty"`
	Items           []ItemInput    `json:"items"`
	Currency        string         `json:"currency"`
	Buyer           payment.Buyer  `json:"buyer"`
	ShippingAddress domain.Address `json:"shippingAddress"`
	BillingAddress  domain.Address `json:"billingAddress"`
	SuccessURL      string         `json:"successUrl"`
	CancelURL       string         `json:"cancelUrl"`
	FailureURL      string         `json:"failureUrl"`
}

type Result struct {
	OrderID     string `json:"orderId"`
	ReferenceID string `json:"referenceId"`
	RedirectURL string `json:"redirectUrl"`
}

// Start runs the full checkout-initiation flow for one provider. The pending
// order row exists in storage before the redirect URL is returned, so a
// webhook arriving before the customer returns from the hosted page can find
// it by reference id.
func (s *Service) Start(ctx context.Context, method domain.PaymentMethod, in Input) (*Result, error) {
	provider, ok := s.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPaymentMethod, method)
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	order, err := s.buildOrder(ctx, method, in)
	if err != nil {
		return nil, err
	}
	if err := s.orders.CreatePending(ctx, order); err != nil {
		return nil, fmt.Errorf("persist pending order: %w", err)
	}

	draft, err := s.buildDraft(ctx, *order, in)
	if err != nil {
		s.compensate(ctx, order.ID)
		return nil, err
	}

	sess, err := provider.CreateSession(ctx, draft)
	if err != nil {
		// The provider call failed; remove the pending row rather than
		// leaving an orphan that can never be paid.
		s.compensate(ctx, order.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckoutInit, err)
	}

	if err := s.orders.SetProviderSession(ctx, order.ID, sess.SessionID); err != nil {
		s.logger.Printf("checkout: store session id for order=%s failed: %v", order.ID, err)
	}

	return &Result{
		OrderID:     order.ID,
		ReferenceID: order.ReferenceID,
		RedirectURL: sess.RedirectURL,
	}, nil
}

// CheckTabbyEligibility runs the BNPL pre-scoring check. It persists nothing
// and creates no order; the provisional provider response is only an
// approve/reject signal.
func (s *Service) CheckTabbyEligibility(ctx context.Context, in Input) (bool, error) {
	if s.prescorer == nil {
		return false, errors.New("tabby prescoring unavailable")
	}
	if err := validate(in); err != nil {
		return false, err
	}
	order, err := s.buildOrder(ctx, domain.MethodTabby, in)
	if err != nil {
		return false, err
	}
	draft, err := s.buildDraft(ctx, *order, in)
	if err != nil {
		return false, err
	}
	return s.prescorer.CheckEligibility(ctx, draft)
}

func validate(in Input) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items required", ErrInvalidInput)
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.ProductRef) == "" {
			return fmt.Errorf("%w: productRef required", ErrInvalidInput)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}
	}
	if strings.TrimSpace(in.Buyer.Email) == "" {
		return fmt.Errorf("%w: buyer email required", ErrInvalidInput)
	}
	addr := in.ShippingAddress
	if strings.TrimSpace(addr.Line1) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.Country) == "" {
		return fmt.Errorf("%w: shipping address line1, city and country required", ErrInvalidInput)
	}
	return nil
}

// buildOrder snapshots catalog prices and computes totals once. The total is
// never recomputed after this point.
func (s *Service) buildOrder(ctx context.Context, method domain.PaymentMethod, in Input) (*domain.Order, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "AED"
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for _, item := range in.Items {
		product, err := s.products.GetBySKU(ctx, item.ProductRef)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown product %s", ErrInvalidInput, item.ProductRef)
			}
			return nil, err
		}
		snapshot := domain.OrderItem{
			ProductRef: product.SKU,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Quantity:   item.Quantity,
			ImageURL:   product.ImageURL,
		}
		items = append(items, snapshot)
		subtotal = subtotal.Add(snapshot.Total())
	}

	quote := shipping.Calculate(in.ShippingAddress.Country, subtotal)
	billing := in.BillingAddress
	if billing.Line1 == "" {
		billing = in.ShippingAddress
	}

	return &domain.Order{
		ReferenceID:     newReferenceID(method),
		UserID:          in.UserID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     quote.Fee,
		Total:           subtotal.Add(quote.Fee),
		Currency:        currency,
		PaymentMethod:   method,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
	}, nil
}

func (s *Service) buildDraft(ctx context.Context, order domain.Order, in Input) (payment.Draft, error) {
	draft := payment.Draft{
		OrderID:         order.ID,
		ReferenceID:     order.ReferenceID,
		Items:           order.Items,
		Subtotal:        order.Subtotal,
		ShippingFee:     order.ShippingFee,
		Total:           order.Total,
		Currency:        order.Currency,
		Buyer:           in.Buyer,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		SuccessURL:      in.SuccessURL,
		CancelURL:       in.CancelURL,
		FailureURL:      in.FailureURL,
	}

	// BNPL providers score risk on the buyer's local purchase record.
	if order.PaymentMethod != domain.MethodStripe && in.UserID != nil {
		history, err := s.buyerHistory(ctx, *in.UserID)
		if err != nil {
			return payment.Draft{}, err
		}
		draft.BuyerHistory = history
	}
	return draft, nil
}

func (s *Service) buyerHistory(ctx context.Context, userID string) (*domain.BuyerHistory, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidInput, userID)
		}
		return nil, err
	}
	count, total, err := s.orders.PaidStatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("buyer history for %s: %w", userID, err)
	}
	return &domain.BuyerHistory{
		RegisteredSince: u.RegisteredAt,
		PaidOrderCount:  count,
		TotalPaidAmount: total,
	}, nil
}

func (s *Service) compensate(ctx context.Context, orderID string) {
	if err := s.orders.DeleteByID(ctx, orderID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("checkout: compensating delete of order=%s failed: %v", orderID, err)
	}
}

func newReferenceID(method domain.PaymentMethod) string {
	return fmt.Sprintf("%s_%s", method, uuid.NewString())
}
