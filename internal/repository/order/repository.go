package order

import (
	"context"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// TransitionFields are extra columns written together with a status
// transition, inside the same atomic update.
type TransitionFields struct {
	OrderStatus       domain.OrderStatus
	ProviderPaymentID string
}

// ListFilter narrows the admin order listing. Zero values mean "no filter".
type ListFilter struct {
	PaymentStatus domain.PaymentStatus
	PaymentMethod domain.PaymentMethod
	UserID        string
	Limit         int
	Offset        int
}

type Repository interface {
	// CreatePending persists a new order in pending state and fills in its id.
	CreatePending(ctx context.Context, o *domain.Order) error

	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// FindByReferenceOrProviderID matches either our reference id or a
	// provider-assigned session/payment id. Either argument may be empty.
	FindByReferenceOrProviderID(ctx context.Context, referenceID, providerID string) (*domain.Order, error)

	// SetProviderSession records the provider's session id after session creation.
	SetProviderSession(ctx context.Context, id, sessionID string) error

	// SetStatusIfIn atomically moves payment_status to next only if the stored
	// status is in allowed, writing fields in the same statement. Returns
	// false when the guard did not match (transition already applied or not
	// legal from the current state).
	SetStatusIfIn(ctx context.Context, id string, next domain.PaymentStatus, allowed []domain.PaymentStatus, fields TransitionFields) (bool, error)

	// SetCaptureID records the provider capture id after a capture call.
	SetCaptureID(ctx context.Context, id, captureID string) error

	// DeleteByID removes an order. Used only as the compensating action after
	// a failed provider session-creation call.
	DeleteByID(ctx context.Context, id string) error

	List(ctx context.Context, f ListFilter) ([]domain.Order, error)

	// PaidStatsByUser returns the count and summed total of the user's paid
	// orders, for BNPL buyer-history payloads.
	PaidStatsByUser(ctx context.Context, userID string) (int, decimal.Decimal, error)
}
