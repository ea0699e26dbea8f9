// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	Create(ctx context.Context, p *Payment) error
	GetByOrderForUpdate(ctx context.Context, gateway, orderID string) (*Payment, error)
	SetStatus(ctx context.Context, id, status string, gatewayPaymentID *string) error
	ListByUser(ctx context.Context, params ListPaymentsParams) ([]Payment, int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	RecordEvent(ctx context.Context, gateway, eventID, eventType string) (bool, error)
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx core.DBTX) Repository {
	return &repository{db: tx}
}

const paymentColumns = `id, order_id, user_id, plan, billing_cycle, amount,
	currency, gateway, status, gateway_payment_id, receipt, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, order_id, user_id, plan, billing_cycle,
			amount, currency, gateway, status, receipt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.OrderID,
		p.UserID,
		p.Plan,
		p.BillingCycle,
		p.Amount,
		p.Currency,
		p.Gateway,
		p.Status,
		p.Receipt,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetByOrderForUpdate(
	ctx context.Context,
	gateway, orderID string,
) (*Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE gateway = $1 AND order_id = $2
		FOR UPDATE`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, gateway, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment by order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by order: %w", err)
	}

	return &p, nil
}

func (r *repository) SetStatus(
	ctx context.Context,
	id, status string,
	gatewayPaymentID *string,
) error {
	query := `
		UPDATE payments
		SET status = $2,
			gateway_payment_id = COALESCE($3, gateway_payment_id),
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, gatewayPaymentID)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set payment status: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	params ListPaymentsParams,
) ([]Payment, int, error) {
	params.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM payments WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, params.UserID); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query,
		params.UserID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	return payments, total, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM payments GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count payments by status: %w", err)
	}

	counts := map[string]int{
		StatusPending:   0,
		StatusCompleted: 0,
		StatusFailed:    0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

// RecordEvent stores a processed webhook delivery. It reports false when the
// event was already recorded.
func (r *repository) RecordEvent(
	ctx context.Context,
	gateway, eventID, eventType string,
) (bool, error) {
	query := `
		INSERT INTO webhook_events (gateway, event_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (gateway, event_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, gateway, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE received_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge webhook events: %w", err)
	}

	return result.RowsAffected()
}
