package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lotline/sentinel/internal/domain/fraud"
)

// PostgresSignalRepository implements fraud.SignalRepository using pgx
type PostgresSignalRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSignalRepository creates a new PostgreSQL signal repository
func NewPostgresSignalRepository(pool *pgxpool.Pool) *PostgresSignalRepository {
	return &PostgresSignalRepository{pool: pool}
}

// CreateSignal inserts a new signal within a transaction and fills in its ID
func (r *PostgresSignalRepository) CreateSignal(ctx context.Context, tx pgx.Tx, signal *fraud.FraudSignal) error {
	reasons, err := json.Marshal(signal.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := `
		INSERT INTO fraud_signals (auction_id, user_id, bid_id, score, reasons, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		signal.AuctionID,
		signal.UserID,
		signal.BidID,
		signal.Score,
		reasons,
		signal.Status,
		signal.CreatedAt,
	).Scan(&signal.ID)
	if err != nil {
		return fmt.Errorf("failed to insert fraud signal: %w", err)
	}
	return nil
}

// HasRecentOpenSignal reports whether an OPEN signal exists for the
// (auction, user) pair created at or after the cutoff
func (r *PostgresSignalRepository) HasRecentOpenSignal(ctx context.Context, auctionID uuid.UUID, userID int64, since time.Time) (bool, error) {
	query := `
		SELECT 1
		FROM fraud_signals
		WHERE auction_id = $1
		  AND user_id = $2
		  AND status = $3
		  AND created_at >= $4
		LIMIT 1
	`
	var one int
	err := r.pool.QueryRow(ctx, query, auctionID, userID, fraud.SignalStatusOpen, since).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check duplicate signal: %w", err)
	}
	return true, nil
}

const signalColumns = `id, auction_id, user_id, bid_id, score, reasons, status, resolved_by, resolution_note, resolved_at, created_at`

func scanSignal(row pgx.Row) (*fraud.FraudSignal, error) {
	var signal fraud.FraudSignal
	var reasons []byte
	err := row.Scan(
		&signal.ID,
		&signal.AuctionID,
		&signal.UserID,
		&signal.BidID,
		&signal.Score,
		&reasons,
		&signal.Status,
		&signal.ResolvedBy,
		&signal.ResolutionNote,
		&signal.ResolvedAt,
		&signal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reasons, &signal.Reasons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
	}
	return &signal, nil
}

// GetSignal retrieves a signal by its ID
func (r *PostgresSignalRepository) GetSignal(ctx context.Context, signalID int64) (*fraud.FraudSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM fraud_signals WHERE id = $1`
	signal, err := scanSignal(r.pool.QueryRow(ctx, query, signalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fraud.ErrSignalNotFound
		}
		return nil, fmt.Errorf("failed to get fraud signal: %w", err)
	}
	return signal, nil
}

// GetSignalForUpdate retrieves a signal by its ID and locks the row so two
// concurrent moderator actions on the same signal cannot both win
func (r *PostgresSignalRepository) GetSignalForUpdate(ctx context.Context, tx pgx.Tx, signalID int64) (*fraud.FraudSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM fraud_signals WHERE id = $1 FOR UPDATE`
	signal, err := scanSignal(tx.QueryRow(ctx, query, signalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fraud.ErrSignalNotFound
		}
		return nil, fmt.Errorf("failed to lock fraud signal: %w", err)
	}
	return signal, nil
}

// UpdateResolution persists the terminal transition within a transaction
func (r *PostgresSignalRepository) UpdateResolution(ctx context.Context, tx pgx.Tx, signal *fraud.FraudSignal) error {
	query := `
		UPDATE fraud_signals
		SET status = $2, resolved_by = $3, resolution_note = $4, resolved_at = $5
		WHERE id = $1
	`
	result, err := tx.Exec(ctx, query,
		signal.ID,
		signal.Status,
		signal.ResolvedBy,
		signal.ResolutionNote,
		signal.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update fraud signal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fraud.ErrSignalNotFound
	}
	return nil
}

// ListSignals returns signals matching the filter, newest first
func (r *PostgresSignalRepository) ListSignals(ctx context.Context, q fraud.ListSignalsQuery) ([]*fraud.FraudSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM fraud_signals WHERE TRUE`
	args := []any{}
	if q.AuctionID != nil {
		args = append(args, *q.AuctionID)
		query += fmt.Sprintf(" AND auction_id = $%d", len(args))
	}
	if q.Status != nil {
		args = append(args, *q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud signals: %w", err)
	}
	defer rows.Close()

	var signals []*fraud.FraudSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud signal: %w", err)
		}
		signals = append(signals, signal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fraud signals: %w", err)
	}
	return signals, nil
}

// HasOpenSignalForBid reports whether an OPEN signal is anchored to the bid
func (r *PostgresSignalRepository) HasOpenSignalForBid(ctx context.Context, bidID uuid.UUID) (bool, error) {
	query := `
		SELECT 1
		FROM fraud_signals
		WHERE bid_id = $1
		  AND status = $2
		LIMIT 1
	`
	var one int
	err := r.pool.QueryRow(ctx, query, bidID, fraud.SignalStatusOpen).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check signal for bid: %w", err)
	}
	return true, nil
}
