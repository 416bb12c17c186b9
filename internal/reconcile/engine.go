// Package reconcile drives the order payment state machine from normalized
// provider events. Every transition is an atomic compare-and-set at the
// storage layer; the engine holds no locks and tolerates duplicated and
// reordered webhook deliveries.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	orderrepo "github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/repository/order"
	"github.com/shopspring/decimal"
)

// amountTolerance absorbs sub-cent rounding between provider and local
// totals. Anything beyond it is a fraud/bug signal.
var amountTolerance = decimal.NewFromFloat(0.01)

type orderRepo interface {
	FindByReferenceOrProviderID(ctx context.Context, referenceID, providerID string) (*domain.Order, error)
	CreatePending(ctx context.Context, o *domain.Order) error
	SetStatusIfIn(ctx context.Context, id string, next domain.PaymentStatus, allowed []domain.PaymentStatus, fields orderrepo.TransitionFields) (bool, error)
	SetCaptureID(ctx context.Context, id, captureID string) error
}

type userRepo interface {
	ClearCart(ctx context.Context, userID string) error
	AppendOrder(ctx context.Context, userID, orderID string) error
}

type notifier interface {
	Notify(ctx context.Context, orderID string) error
}

type Engine struct {
	orders    orderRepo
	users     userRepo
	notifier  notifier
	capturers map[domain.PaymentMethod]payment.Capturer
	logger    *log.Logger
}

func NewEngine(orders orderRepo, users userRepo, n notifier, capturers map[domain.PaymentMethod]payment.Capturer, logger *log.Logger) *Engine {
	return &Engine{
		orders:    orders,
		users:     users,
		notifier:  n,
		capturers: capturers,
		logger:    logger,
	}
}

// Process applies one verified event to its order. Duplicate and stale
// events are silent no-ops; only the first transition into paid runs the
// cart-clear, history-append and notification side effects.
func (e *Engine) Process(ctx context.Context, ev domain.PaymentEvent) error {
	order, err := e.lookupOrReconstruct(ctx, ev)
	if err != nil {
		return err
	}

	if err := e.guardAmount(*order, ev); err != nil {
		return err
	}

	switch {
	case ev.Status == domain.EventAuthorized:
		return e.applyAuthorized(ctx, *order, ev)
	case ev.Status == domain.EventPaid:
		return e.applyPaid(ctx, *order, ev)
	case ev.Status.IsFailure():
		return e.applyFailed(ctx, *order, ev)
	case ev.Status == domain.EventRefunded:
		return e.applyRefunded(ctx, *order, ev)
	}
	return fmt.Errorf("event %q for order %s: %w", ev.Status, order.ID, domain.ErrUnknownStatus)
}

func (e *Engine) lookupOrReconstruct(ctx context.Context, ev domain.PaymentEvent) (*domain.Order, error) {
	order, err := e.orders.FindByReferenceOrProviderID(ctx, ev.ReferenceID, ev.ProviderPaymentID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup order for reference=%s payment=%s: %w", ev.ReferenceID, ev.ProviderPaymentID, err)
	}
	if !ev.CanReconstruct() {
		return nil, fmt.Errorf("no order for reference=%s payment=%s and event carries no payload", ev.ReferenceID, ev.ProviderPaymentID)
	}

	// The provider considers the reference valid but we never persisted the
	// order (webhook raced checkout, or the order was created out-of-band).
	// Rebuild it from the webhook's own payload instead of dropping money
	// movement on the floor.
	order = reconstructOrder(ev)
	if err := e.orders.CreatePending(ctx, order); err != nil {
		return nil, fmt.Errorf("reconstruct order for reference=%s: %w", ev.ReferenceID, err)
	}
	e.logger.Printf("reconcile: reconstructed order id=%s reference=%s from %s webhook", order.ID, order.ReferenceID, ev.Provider)
	return order, nil
}

func reconstructOrder(ev domain.PaymentEvent) *domain.Order {
	subtotal := decimal.Zero
	for _, item := range ev.Items {
		subtotal = subtotal.Add(item.Total())
	}
	shippingFee := decimal.Zero
	total := subtotal
	if ev.Amount.GreaterThan(subtotal) {
		shippingFee = ev.Amount.Sub(subtotal)
		total = ev.Amount
	}

	o := &domain.Order{
		ReferenceID:   ev.ReferenceID,
		UserID:        ev.UserID,
		Items:         ev.Items,
		Subtotal:      subtotal,
		ShippingFee:   shippingFee,
		Total:         total,
		Currency:      ev.Currency,
		PaymentMethod: ev.Provider,
	}
	if ev.ShippingAddress != nil {
		o.ShippingAddress = *ev.ShippingAddress
	}
	if ev.BillingAddress != nil {
		o.BillingAddress = *ev.BillingAddress
	} else if ev.ShippingAddress != nil {
		o.BillingAddress = *ev.ShippingAddress
	}
	return o
}

// guardAmount aborts any money-confirming transition whose reported amount
// disagrees with the stored total. The order stays in its prior state for
// manual review; this is never auto-resolved.
func (e *Engine) guardAmount(order domain.Order, ev domain.PaymentEvent) error {
	if ev.Status != domain.EventAuthorized && ev.Status != domain.EventPaid {
		return nil
	}
	// No amount in the notification means nothing to compare. A reported
	// zero is a mismatch like any other.
	if !ev.HasAmount {
		return nil
	}
	if ev.Amount.Sub(order.Total).Abs().GreaterThan(amountTolerance) {
		e.logger.Printf("reconcile: AMOUNT MISMATCH order=%s reference=%s stored=%s reported=%s provider=%s",
			order.ID, order.ReferenceID, order.Total, ev.Amount, ev.Provider)
		return fmt.Errorf("order %s: reported %s vs stored %s: %w", order.ID, ev.Amount, order.Total, domain.ErrAmountMismatch)
	}
	return nil
}

func (e *Engine) applyAuthorized(ctx context.Context, order domain.Order, ev domain.PaymentEvent) error {
	won, err := e.orders.SetStatusIfIn(ctx, order.ID, domain.PaymentAuthorized,
		[]domain.PaymentStatus{domain.PaymentPending},
		orderrepo.TransitionFields{ProviderPaymentID: ev.ProviderPaymentID})
	if err != nil {
		return fmt.Errorf("transition order %s to authorized: %w", order.ID, err)
	}
	if !won {
		// Already authorized or paid: duplicate delivery, nothing to do.
		return nil
	}
	e.capture(ctx, order, ev)
	return nil
}

// capture requests the full authorized amount. A failed capture is logged
// and swallowed: authorized reflects the provider's truth and capture is
// retriable out-of-band with the same payment id.
func (e *Engine) capture(ctx context.Context, order domain.Order, ev domain.PaymentEvent) {
	capturer, ok := e.capturers[order.PaymentMethod]
	if !ok {
		return
	}
	paymentID := ev.ProviderPaymentID
	if paymentID == "" {
		paymentID = order.ProviderPaymentID
	}
	captureID, err := capturer.Capture(ctx, paymentID, order.Total, order.Currency)
	if err != nil {
		e.logger.Printf("reconcile: capture for order=%s payment=%s failed (will retry out-of-band): %v", order.ID, paymentID, err)
		return
	}
	if err := e.orders.SetCaptureID(ctx, order.ID, captureID); err != nil {
		e.logger.Printf("reconcile: record capture id for order=%s failed: %v", order.ID, err)
	}
}

func (e *Engine) applyPaid(ctx context.Context, order domain.Order, ev domain.PaymentEvent) error {
	won, err := e.orders.SetStatusIfIn(ctx, order.ID, domain.PaymentPaid,
		[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentAuthorized},
		orderrepo.TransitionFields{OrderStatus: domain.OrderProcessing, ProviderPaymentID: ev.ProviderPaymentID})
	if err != nil {
		return fmt.Errorf("transition order %s to paid: %w", order.ID, err)
	}
	if !won {
		// Re-delivered paid webhook: no duplicate emails, no second cart clear.
		return nil
	}

	if order.UserID != nil {
		if err := e.users.ClearCart(ctx, *order.UserID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			e.logger.Printf("reconcile: clear cart user=%s order=%s failed: %v", *order.UserID, order.ID, err)
		}
		if err := e.users.AppendOrder(ctx, *order.UserID, order.ID); err != nil {
			e.logger.Printf("reconcile: append order=%s to user=%s failed: %v", order.ID, *order.UserID, err)
		}
	}
	if err := e.notifier.Notify(ctx, order.ID); err != nil {
		e.logger.Printf("reconcile: confirmation notify order=%s failed: %v", order.ID, err)
	}
	return nil
}

func (e *Engine) applyFailed(ctx context.Context, order domain.Order, ev domain.PaymentEvent) error {
	_, err := e.orders.SetStatusIfIn(ctx, order.ID, domain.PaymentFailed,
		[]domain.PaymentStatus{domain.PaymentPending, domain.PaymentAuthorized},
		orderrepo.TransitionFields{OrderStatus: failureOrderStatus(ev.Status)})
	if err != nil {
		return fmt.Errorf("transition order %s to failed: %w", order.ID, err)
	}
	// A paid order never matches the guard here: refunds are an explicit,
	// separate transition.
	return nil
}

func (e *Engine) applyRefunded(ctx context.Context, order domain.Order, ev domain.PaymentEvent) error {
	_, err := e.orders.SetStatusIfIn(ctx, order.ID, domain.PaymentRefunded,
		[]domain.PaymentStatus{domain.PaymentPaid},
		orderrepo.TransitionFields{OrderStatus: domain.OrderCancelled})
	if err != nil {
		return fmt.Errorf("transition order %s to refunded: %w", order.ID, err)
	}
	return nil
}

// Refund marks a paid order refunded, for the operator endpoint. Returns
// false when the order is not currently paid (idempotent re-entry included).
func (e *Engine) Refund(ctx context.Context, orderID string) (bool, error) {
	won, err := e.orders.SetStatusIfIn(ctx, orderID, domain.PaymentRefunded,
		[]domain.PaymentStatus{domain.PaymentPaid},
		orderrepo.TransitionFields{OrderStatus: domain.OrderCancelled})
	if err != nil {
		return false, fmt.Errorf("refund order %s: %w", orderID, err)
	}
	return won, nil
}

// failureOrderStatus keeps the distinct failure families visible to
// operators on the fulfillment status.
func failureOrderStatus(s domain.EventStatus) domain.OrderStatus {
	switch s {
	case domain.EventExpired:
		return domain.OrderExpired
	case domain.EventRejected:
		return domain.OrderRejected
	default:
		return domain.OrderCancelled
	}
}
