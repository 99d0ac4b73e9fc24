package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGuarantorRepository implements risk.GuarantorLookup using pgx
type PostgresGuarantorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresGuarantorRepository creates a new PostgreSQL guarantor repository
func NewPostgresGuarantorRepository(pool *pgxpool.Pool) *PostgresGuarantorRepository {
	return &PostgresGuarantorRepository{pool: pool}
}

// HasAssigned reports whether the user has a guarantor request in ASSIGNED
// status no older than maxAgeDays
func (r *PostgresGuarantorRepository) HasAssigned(ctx context.Context, userID int64, maxAgeDays int) (bool, error) {
	query := `
		SELECT 1
		FROM guarantor_requests
		WHERE submitter_user_id = $1
		  AND status = 'ASSIGNED'
	`
	args := []any{userID}
	if maxAgeDays > 0 {
		args = append(args, maxAgeDays)
		query += fmt.Sprintf(
			` AND ((resolved_at IS NOT NULL AND resolved_at >= NOW() - make_interval(days => $%d))
			   OR updated_at >= NOW() - make_interval(days => $%d))`,
			len(args), len(args),
		)
	}
	query += ` ORDER BY updated_at DESC LIMIT 1`

	var one int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check guarantor assignment: %w", err)
	}
	return true, nil
}
