package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
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
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `
id::text, reference_id, user_id::text, items, subtotal::text, shipping_fee::text, total::text,
currency, payment_method, payment_status, order_status,
provider_session_id, provider_payment_id, provider_capture_id,
shipping_address, billing_address, created_at, updated_at
`

func (r *postgresRepo) CreatePending(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	shipAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billAddr, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	const q = `
INSERT INTO orders (reference_id, user_id, items, subtotal, shipping_fee, total, currency,
                    payment_method, payment_status, order_status, shipping_address, billing_address)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, 'pending', 'Pending', $9, $10)
RETURNING id::text, payment_status, order_status, created_at, updated_at
`
	if err := r.pool.QueryRow(ctx, q,
		o.ReferenceID,
		o.UserID,
		items,
		o.Subtotal.String(),
		o.ShippingFee.String(),
		o.Total.String(),
		o.Currency,
		string(o.PaymentMethod),
		shipAddr,
		billAddr,
	).Scan(&o.ID, &o.PaymentStatus, &o.OrderStatus, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.fetchOrder(ctx, q, id)
}

func (r *postgresRepo) FindByReferenceOrProviderID(ctx context.Context, referenceID, providerID string) (*domain.Order, error) {
	q := `
SELECT ` + orderColumns + `
FROM orders
WHERE (NULLIF($1, '') IS NOT NULL AND reference_id = $1)
   OR (NULLIF($2, '') IS NOT NULL AND (provider_session_id = $2 OR provider_payment_id = $2))
ORDER BY created_at DESC
LIMIT 1
`
	return r.fetchOrder(ctx, q, referenceID, providerID)
}

func (r *postgresRepo) SetProviderSession(ctx context.Context, id, sessionID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET provider_session_id = $1, updated_at = now()
WHERE id = $2
`, sessionID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetStatusIfIn(ctx context.Context, id string, next domain.PaymentStatus, allowed []domain.PaymentStatus, fields TransitionFields) (bool, error) {
	allowedRaw := make([]string, 0, len(allowed))
	for _, s := range allowed {
		allowedRaw = append(allowedRaw, string(s))
	}

	const q = `
UPDATE orders
SET payment_status = $1,
    order_status = COALESCE(NULLIF($2, ''), order_status),
    provider_payment_id = COALESCE(NULLIF($3, ''), provider_payment_id),
    updated_at = now()
WHERE id = $4 AND payment_status = ANY($5)
`
	cmd, err := r.pool.Exec(ctx, q,
		string(next),
		string(fields.OrderStatus),
		fields.ProviderPaymentID,
		id,
		allowedRaw,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) SetCaptureID(ctx context.Context, id, captureID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET provider_capture_id = $1, updated_at = now()
WHERE id = $2
`, captureID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteByID(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	builder := sq.Select(
		"id::text", "reference_id", "user_id::text", "items",
		"subtotal::text", "shipping_fee::text", "total::text",
		"currency", "payment_method", "payment_status", "order_status",
		"provider_session_id", "provider_payment_id", "provider_capture_id",
		"shipping_address", "billing_address", "created_at", "updated_at",
	).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if f.PaymentStatus != "" {
		builder = builder.Where(sq.Eq{"payment_status": string(f.PaymentStatus)})
	}
	if f.PaymentMethod != "" {
		builder = builder.Where(sq.Eq{"payment_method": string(f.PaymentMethod)})
	}
	if f.UserID != "" {
		builder = builder.Where(sq.Eq{"user_id": f.UserID})
	}
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		builder = builder.Offset(uint64(f.Offset))
	}

	q, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) PaidStatsByUser(ctx context.Context, userID string) (int, decimal.Decimal, error) {
	const q = `
SELECT COUNT(*), COALESCE(SUM(total), 0)::text
FROM orders
WHERE user_id = $1 AND payment_status = 'paid'
`
	var count int
	var totalRaw string
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count, &totalRaw); err != nil {
		return 0, decimal.Zero, err
	}
	total, err := decimal.NewFromString(totalRaw)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("parse paid total: %w", err)
	}
	return count, total, nil
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, args ...interface{}) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, q, args...)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var userID *string
	var items, shipAddr, billAddr []byte
	var subtotal, shippingFee, total string
	var sessionID, paymentID, captureID *string

	if err := row.Scan(
		&o.ID,
		&o.ReferenceID,
		&userID,
		&items,
		&subtotal,
		&shippingFee,
		&total,
		&o.Currency,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.OrderStatus,
		&sessionID,
		&paymentID,
		&captureID,
		&shipAddr,
		&billAddr,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	o.UserID = userID
	if sessionID != nil {
		o.ProviderSessionID = *sessionID
	}
	if paymentID != nil {
		o.ProviderPaymentID = *paymentID
	}
	if captureID != nil {
		o.ProviderCaptureID = *captureID
	}

	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("parse subtotal: %w", err)
	}
	if o.ShippingFee, err = decimal.NewFromString(shippingFee); err != nil {
		return nil, fmt.Errorf("parse shipping fee: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shipAddr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billAddr, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	return &o, nil
}
