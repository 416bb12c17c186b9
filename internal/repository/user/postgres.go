package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	const q = `
INSERT INTO users (email, first_name, last_name, phone, cart)
VALUES ($1, $2, $3, $4, '[]'::jsonb)
RETURNING id::text, email, first_name, last_name, phone, registered_at
`
	var u domain.User
	if err := r.pool.QueryRow(ctx, q, in.Email, in.FirstName, in.LastName, in.Phone).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.RegisteredAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT id::text, email, first_name, last_name, phone, cart, registered_at
FROM users
WHERE id = $1
`
	var u domain.User
	var cart []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &cart, &u.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(cart) > 0 {
		if err := json.Unmarshal(cart, &u.Cart); err != nil {
			return nil, fmt.Errorf("unmarshal cart: %w", err)
		}
	}
	return &u, nil
}

func (r *postgresRepo) ClearCart(ctx context.Context, userID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE users
SET cart = '[]'::jsonb
WHERE id = $1
`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) AppendOrder(ctx context.Context, userID, orderID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_orders (user_id, order_id)
VALUES ($1, $2)
ON CONFLICT (user_id, order_id) DO NOTHING
`, userID, orderID)
	return err
}
