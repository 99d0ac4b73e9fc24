package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/internal/domain/risk"
)

// PostgresRiskProfileRepository implements risk.ProfileSource using pgx
type PostgresRiskProfileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRiskProfileRepository creates a new PostgreSQL risk profile repository
func NewPostgresRiskProfileRepository(pool *pgxpool.Pool) *PostgresRiskProfileRepository {
	return &PostgresRiskProfileRepository{pool: pool}
}

// ProfileCounts returns the live lagging indicators feeding a risk snapshot
func (r *PostgresRiskProfileRepository) ProfileCounts(ctx context.Context, userID int64) (risk.ProfileCounts, error) {
	var counts risk.ProfileCounts

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM complaints WHERE target_user_id = $1`,
		userID,
	).Scan(&counts.ComplaintsAgainst)
	if err != nil {
		return counts, fmt.Errorf("failed to count complaints: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM fraud_signals WHERE user_id = $1 AND status = $2`,
		userID, fraud.SignalStatusOpen,
	).Scan(&counts.OpenFraudSignals)
	if err != nil {
		return counts, fmt.Errorf("failed to count open signals: %w", err)
	}

	var one int
	err = r.pool.QueryRow(ctx,
		`SELECT 1 FROM blacklist_entries
		 WHERE user_id = $1
		   AND is_active = TRUE
		   AND (expires_at IS NULL OR expires_at > NOW())
		 LIMIT 1`,
		userID,
	).Scan(&one)
	switch {
	case err == nil:
		counts.HasActiveBlacklist = true
	case errors.Is(err, pgx.ErrNoRows):
		counts.HasActiveBlacklist = false
	default:
		return counts, fmt.Errorf("failed to check blacklist: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bids WHERE user_id = $1 AND is_removed = TRUE`,
		userID,
	).Scan(&counts.RemovedBids)
	if err != nil {
		return counts, fmt.Errorf("failed to count removed bids: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT is_verified FROM users WHERE id = $1`,
		userID,
	).Scan(&counts.Verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			counts.Verified = false
		} else {
			return counts, fmt.Errorf("failed to check verification: %w", err)
		}
	}

	return counts, nil
}
