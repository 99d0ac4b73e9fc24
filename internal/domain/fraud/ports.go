package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lotline/sentinel/pkg/events"
)

// BidHistory is the read-only windowed query surface over bids and auctions.
// Every method must exclude removed bids from its aggregates. Implementations
// are expected to answer from indexes, never a full history scan.
type BidHistory interface {
	// GetAuction retrieves an auction by its ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetBidder retrieves the acting user by its ID
	GetBidder(ctx context.Context, userID int64) (*Bidder, error)

	// GetBid retrieves a bid by its ID
	GetBid(ctx context.Context, bidID uuid.UUID) (*Bid, error)

	// CountBids counts non-removed bids in the auction since the cutoff.
	// A nil userID counts bids from all bidders.
	CountBids(ctx context.Context, auctionID uuid.UUID, userID *int64, since time.Time) (int, error)

	// RecentBids returns up to limit non-removed bids since the cutoff, newest first
	RecentBids(ctx context.Context, auctionID uuid.UUID, since time.Time, limit int) ([]BidSample, error)

	// OrderedAmounts returns up to limit non-removed bid amounts since the cutoff, oldest first
	OrderedAmounts(ctx context.Context, auctionID uuid.UUID, since time.Time, limit int) ([]int64, error)

	// PreviousBidAmount returns the most recent non-removed bid amount in the
	// auction excluding the given bid. The bool is false when no such bid exists.
	PreviousBidAmount(ctx context.Context, auctionID uuid.UUID, excludeBidID uuid.UUID) (int64, bool, error)

	// HistoricalIncrements pools positive bid increments from up to maxAuctions
	// completed auctions (other than the excluded one) whose start price falls
	// within [startMin, startMax]. Increments are computed per-auction against
	// that auction's own start price and previous bid.
	HistoricalIncrements(ctx context.Context, exclude uuid.UUID, startMin, startMax int64, maxAuctions int) ([]int64, error)
}

// ListSignalsQuery filters the moderator review queue
type ListSignalsQuery struct {
	AuctionID *uuid.UUID
	Status    *SignalStatus
	Limit     int
	Offset    int
}

// SignalRepository persists and mutates fraud signals
type SignalRepository interface {
	// CreateSignal inserts a new signal within a transaction and fills in its ID
	CreateSignal(ctx context.Context, tx pgx.Tx, signal *FraudSignal) error

	// HasRecentOpenSignal reports whether an OPEN signal exists for the
	// (auction, user) pair created at or after the cutoff
	HasRecentOpenSignal(ctx context.Context, auctionID uuid.UUID, userID int64, since time.Time) (bool, error)

	// GetSignal retrieves a signal by its ID
	GetSignal(ctx context.Context, signalID int64) (*FraudSignal, error)

	// GetSignalForUpdate retrieves a signal by its ID and locks the row.
	// Must be called within a transaction.
	GetSignalForUpdate(ctx context.Context, tx pgx.Tx, signalID int64) (*FraudSignal, error)

	// UpdateResolution persists the terminal transition within a transaction
	UpdateResolution(ctx context.Context, tx pgx.Tx, signal *FraudSignal) error

	// ListSignals returns signals matching the filter, newest first
	ListSignals(ctx context.Context, q ListSignalsQuery) ([]*FraudSignal, error)

	// HasOpenSignalForBid reports whether an OPEN signal is anchored to the bid
	HasOpenSignalForBid(ctx context.Context, bidID uuid.UUID) (bool, error)
}

// OutboxRepository defines the slice of the outbox used when persisting a signal
type OutboxRepository interface {
	// SaveEvent saves an outbox event within a transaction
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// DedupGuard is an optional fast-path duplicate suppressor in front of the
// authoritative repository check. It narrows, but does not close, the window
// in which two concurrent evaluations can both pass the dedup check.
type DedupGuard interface {
	// FirstSeen marks the (auction, user) pair and returns false when the pair
	// was already marked inside the window
	FirstSeen(ctx context.Context, auctionID uuid.UUID, userID int64, window time.Duration) (bool, error)
}
