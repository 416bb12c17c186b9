package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT id::text, sku, name, COALESCE(brand, ''), price::text, currency, COALESCE(image_url, ''), created_at
FROM products
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	const q = `
SELECT id::text, sku, name, COALESCE(brand, ''), price::text, currency, COALESCE(image_url, ''), created_at
FROM products
WHERE sku = $1
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get sku=%s error=%v", sku, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (sku, name, brand, price, currency, image_url)
VALUES ($1, $2, NULLIF($3, ''), $4::numeric, $5, NULLIF($6, ''))
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    image_url = EXCLUDED.image_url
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.SKU,
		product.Name,
		product.Brand,
		product.Price.String(),
		product.Currency,
		product.ImageURL,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", product.SKU, err)
		return nil, err
	}
	return &res, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var price string
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Brand, &price, &p.Currency, &p.ImageURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	p.Price = parsed
	return &p, nil
}
