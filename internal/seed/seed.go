package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU      string
	Name     string
	Brand    string
	Price    string
	Currency string
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			SKU:      "MT-SUB-001",
			Name:     "Submariner Date 41",
			Brand:    "Rolex",
			Price:    "52000.00",
			Currency: "AED",
		},
		{
			SKU:      "MT-SPD-002",
			Name:     "Speedmaster Moonwatch Professional",
			Brand:    "Omega",
			Price:    "27500.00",
			Currency: "AED",
		},
		{
			SKU:      "MT-STR-003",
			Name:     "Leather Watch Strap 20mm",
			Brand:    "Montres",
			Price:    "180.00",
			Currency: "AED",
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	if err := ensureUser(ctx, pool, "demo@montres.ae", "Demo", "Customer"); err != nil {
		return fmt.Errorf("ensure demo user: %w", err)
	}

	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, brand, price, currency)
VALUES ($1, $2, $3, $4::numeric, $5)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Name, p.Brand, p.Price, p.Currency)
	if err != nil {
		return err
	}
	return nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, email, firstName, lastName string) error {
	const q = `
INSERT INTO users (email, first_name, last_name, cart)
VALUES ($1, $2, $3, '[]'::jsonb)
ON CONFLICT (email) DO NOTHING
`
	_, err := pool.Exec(ctx, q, email, firstName, lastName)
	return err
}
