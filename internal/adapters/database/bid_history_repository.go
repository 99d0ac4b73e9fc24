package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lotline/sentinel/internal/domain/fraud"
)

// PostgresBidHistoryRepository implements fraud.BidHistory using pgx.
// All aggregates exclude removed bids and are bounded by window and limit,
// answering from the (auction_id, created_at) index.
type PostgresBidHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBidHistoryRepository creates a new PostgreSQL bid history repository
func NewPostgresBidHistoryRepository(pool *pgxpool.Pool) *PostgresBidHistoryRepository {
	return &PostgresBidHistoryRepository{pool: pool}
}

// GetAuction retrieves an auction by its ID
func (r *PostgresBidHistoryRepository) GetAuction(ctx context.Context, auctionID uuid.UUID) (*fraud.Auction, error) {
	query := `
		SELECT id, seller_id, start_price, created_at
		FROM auctions
		WHERE id = $1
	`
	var auction fraud.Auction
	err := r.pool.QueryRow(ctx, query, auctionID).Scan(
		&auction.ID,
		&auction.SellerID,
		&auction.StartPrice,
		&auction.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fraud.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &auction, nil
}

// GetBidder retrieves the acting user by its ID
func (r *PostgresBidHistoryRepository) GetBidder(ctx context.Context, userID int64) (*fraud.Bidder, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE id = $1
	`
	var bidder fraud.Bidder
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&bidder.ID,
		&bidder.Username,
		&bidder.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fraud.ErrBidderNotFound
		}
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	return &bidder, nil
}

// GetBid retrieves a bid by its ID
func (r *PostgresBidHistoryRepository) GetBid(ctx context.Context, bidID uuid.UUID) (*fraud.Bid, error) {
	query := `
		SELECT id, auction_id, user_id, amount, is_removed, created_at
		FROM bids
		WHERE id = $1
	`
	var bid fraud.Bid
	err := r.pool.QueryRow(ctx, query, bidID).Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.UserID,
		&bid.Amount,
		&bid.Removed,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fraud.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// CountBids counts non-removed bids in the auction since the cutoff
func (r *PostgresBidHistoryRepository) CountBids(ctx context.Context, auctionID uuid.UUID, userID *int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bids
		WHERE auction_id = $1
		  AND is_removed = FALSE
		  AND created_at >= $2
		  AND ($3::bigint IS NULL OR user_id = $3)
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, auctionID, since, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

// RecentBids returns up to limit non-removed bids since the cutoff, newest first
func (r *PostgresBidHistoryRepository) RecentBids(ctx context.Context, auctionID uuid.UUID, since time.Time, limit int) ([]fraud.BidSample, error) {
	query := `
		SELECT user_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		  AND is_removed = FALSE
		  AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, auctionID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent bids: %w", err)
	}
	defer rows.Close()

	var samples []fraud.BidSample
	for rows.Next() {
		var sample fraud.BidSample
		if err := rows.Scan(&sample.UserID, &sample.Amount, &sample.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent bids: %w", err)
	}
	return samples, nil
}

// OrderedAmounts returns up to limit non-removed bid amounts since the cutoff, oldest first
func (r *PostgresBidHistoryRepository) OrderedAmounts(ctx context.Context, auctionID uuid.UUID, since time.Time, limit int) ([]int64, error) {
	query := `
		SELECT amount
		FROM bids
		WHERE auction_id = $1
		  AND is_removed = FALSE
		  AND created_at >= $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, auctionID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ordered amounts: %w", err)
	}
	defer rows.Close()

	var amounts []int64
	for rows.Next() {
		var amount int64
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amounts = append(amounts, amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating amounts: %w", err)
	}
	return amounts, nil
}

// PreviousBidAmount returns the most recent non-removed bid amount in the
// auction excluding the given bid
func (r *PostgresBidHistoryRepository) PreviousBidAmount(ctx context.Context, auctionID uuid.UUID, excludeBidID uuid.UUID) (int64, bool, error) {
	query := `
		SELECT amount
		FROM bids
		WHERE auction_id = $1
		  AND is_removed = FALSE
		  AND id <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var amount int64
	err := r.pool.QueryRow(ctx, query, auctionID, excludeBidID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get previous bid amount: %w", err)
	}
	return amount, true, nil
}

// HistoricalIncrements pools positive bid increments from up to maxAuctions
// completed auctions in the given start-price band. Increments are computed
// per-auction against that auction's own start price and previous bid.
func (r *PostgresBidHistoryRepository) HistoricalIncrements(ctx context.Context, exclude uuid.UUID, startMin, startMax int64, maxAuctions int) ([]int64, error) {
	auctionQuery := `
		SELECT id, start_price
		FROM auctions
		WHERE id <> $1
		  AND status IN ('ENDED', 'BOUGHT_OUT')
		  AND start_price >= $2
		  AND start_price <= $3
		ORDER BY ends_at DESC NULLS LAST, updated_at DESC
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, auctionQuery, exclude, startMin, startMax, maxAuctions)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed auctions: %w", err)
	}
	defer rows.Close()

	startPrices := make(map[uuid.UUID]int64)
	var auctionIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var startPrice int64
		if err := rows.Scan(&id, &startPrice); err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctionIDs = append(auctionIDs, id)
		startPrices[id] = startPrice
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	if len(auctionIDs) == 0 {
		return nil, nil
	}

	bidQuery := `
		SELECT auction_id, amount
		FROM bids
		WHERE auction_id = ANY($1)
		  AND is_removed = FALSE
		ORDER BY auction_id ASC, created_at ASC
	`
	bidRows, err := r.pool.Query(ctx, bidQuery, auctionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical bids: %w", err)
	}
	defer bidRows.Close()

	byAuction := make(map[uuid.UUID][]int64)
	for bidRows.Next() {
		var auctionID uuid.UUID
		var amount int64
		if err := bidRows.Scan(&auctionID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan historical bid: %w", err)
		}
		byAuction[auctionID] = append(byAuction[auctionID], amount)
	}
	if err := bidRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating historical bids: %w", err)
	}

	var increments []int64
	for auctionID, amounts := range byAuction {
		// A single bid gives no usable increment chain
		if len(amounts) < 2 {
			continue
		}
		prev := startPrices[auctionID]
		for _, amount := range amounts {
			if increment := amount - prev; increment > 0 {
				increments = append(increments, increment)
			}
			prev = amount
		}
	}
	return increments, nil
}
