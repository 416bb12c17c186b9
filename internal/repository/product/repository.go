package product

import (
	"context"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
