// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

type Repository interface {
	WithTx(tx core.DBTX) Repository
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	InsertMinimal(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	ActivateSubscription(
		ctx context.Context,
		id, plan, cycle string,
		startedAt, endsAt time.Time,
	) error
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	CountByPlan(ctx context.Context) (map[string]int, error)
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

const userColumns = `id, email, plan, subscription_status, billing_cycle,
	subscription_started_at, subscription_ends_at,
	created_at, updated_at, deleted_at`

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// Upsert inserts the user or refreshes the email of an existing row. Plan and
// subscription fields are never touched here.
func (r *repository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, plan, subscription_status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    updated_at = CASE
		        WHEN EXCLUDED.email <> '' AND EXCLUDED.email <> users.email
		        THEN NOW() ELSE users.updated_at END
		RETURNING ` + userColumns

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.Plan,
		user.SubscriptionStatus,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("upsert user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (r *repository) InsertMinimal(ctx context.Context, id string) error {
	query := `
		INSERT INTO users (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("insert minimal user: %w", err)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ActivateSubscription(
	ctx context.Context,
	id, plan, cycle string,
	startedAt, endsAt time.Time,
) error {
	query := `
		UPDATE users
		SET plan = $2,
		    subscription_status = 'active',
		    billing_cycle = $3,
		    subscription_started_at = $4,
		    subscription_ends_at = $5,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, plan, cycle, startedAt, endsAt)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("activate subscription: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ExpireSubscriptions(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	query := `
		UPDATE users
		SET subscription_status = 'inactive', updated_at = NOW()
		WHERE subscription_status = 'active'
		  AND subscription_ends_at IS NOT NULL
		  AND subscription_ends_at < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}

	return rows, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR id ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Plan != "" {
		conditions = append(conditions, fmt.Sprintf("plan = $%d", argIdx))
		args = append(args, params.Plan)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf(
			"subscription_status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) CountByPlan(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT plan, COUNT(*) AS count
		FROM users
		WHERE deleted_at IS NULL
		GROUP BY plan`

	var rows []struct {
		Plan  string `db:"plan"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count users by plan: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Plan] = row.Count
	}

	return counts, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
