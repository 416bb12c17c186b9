package user

import (
	"context"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
)

type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

type Repository interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// ClearCart empties the stored cart. Safe to call repeatedly.
	ClearCart(ctx context.Context, userID string) error

	// AppendOrder links an order into the user's history. Idempotent: a
	// replayed webhook appending the same order is a no-op.
	AppendOrder(ctx context.Context, userID, orderID string) error
}
