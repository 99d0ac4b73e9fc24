package fraud

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain errors
var (
	ErrAuctionNotFound   = fmt.Errorf("auction not found")
	ErrBidderNotFound    = fmt.Errorf("bidder not found")
	ErrBidNotFound       = fmt.Errorf("bid not found")
	ErrSignalNotFound    = fmt.Errorf("fraud signal not found")
	ErrInvalidTransition = fmt.Errorf("fraud signal is already resolved with a different status")
	ErrInvalidStatus     = fmt.Errorf("target status must be CONFIRMED or DISMISSED")
)

// SignalStatus represents the moderator disposition of a fraud signal
type SignalStatus string

const (
	SignalStatusOpen      SignalStatus = "OPEN"
	SignalStatusConfirmed SignalStatus = "CONFIRMED"
	SignalStatusDismissed SignalStatus = "DISMISSED"
)

// IsValid checks if the status is a known one
func (s SignalStatus) IsValid() bool {
	switch s {
	case SignalStatusOpen, SignalStatusConfirmed, SignalStatusDismissed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can no longer change
func (s SignalStatus) IsTerminal() bool {
	return s == SignalStatusConfirmed || s == SignalStatusDismissed
}

// ReasonCode identifies a detection rule that contributed to a signal
type ReasonCode string

const (
	ReasonRapidBidding            ReasonCode = "RAPID_BIDDING"
	ReasonDominantBidder          ReasonCode = "DOMINANT_BIDDER"
	ReasonNewAccountHighBid       ReasonCode = "NEW_ACCOUNT_HIGH_BID"
	ReasonDuopolyPattern          ReasonCode = "DUOPOLY_PATTERN"
	ReasonAlternatingPair         ReasonCode = "ALTERNATING_PAIR"
	ReasonBaselineSpike           ReasonCode = "BASELINE_SPIKE"
	ReasonHistoricalBaselineSpike ReasonCode = "HISTORICAL_BASELINE_SPIKE"
)

var reasonLabels = map[ReasonCode]string{
	ReasonRapidBidding:            "rapid bidding burst",
	ReasonDominantBidder:          "dominant share of recent bids",
	ReasonNewAccountHighBid:       "new account placing a high bid",
	ReasonDuopolyPattern:          "two bidders dominate the auction",
	ReasonAlternatingPair:         "two bidders alternating in a chain",
	ReasonBaselineSpike:           "bid increment spike vs auction baseline",
	ReasonHistoricalBaselineSpike: "bid increment spike vs historical baseline",
}

// Label returns the human-readable label for the code
func (c ReasonCode) Label() string {
	if label, ok := reasonLabels[c]; ok {
		return label
	}
	return string(c)
}

// Reason is one weighted rule contribution attached to a signal
type Reason struct {
	Code   ReasonCode `json:"code"`
	Detail string     `json:"detail"`
	Score  int        `json:"score"`
}

// FraudSignal is a persisted record flagging a user's bidding as suspicious,
// pending moderator disposition. Signals are never deleted.
type FraudSignal struct {
	ID             int64        `db:"id"`
	AuctionID      uuid.UUID    `db:"auction_id"`
	UserID         int64        `db:"user_id"`
	BidID          *uuid.UUID   `db:"bid_id"`
	Score          int          `db:"score"`
	Reasons        []Reason     `db:"reasons"`
	Status         SignalStatus `db:"status"`
	ResolvedBy     *int64       `db:"resolved_by"`
	ResolutionNote *string      `db:"resolution_note"`
	ResolvedAt     *time.Time   `db:"resolved_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

// Summary renders the signal for moderator review surfaces
func (s *FraudSignal) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fraud signal #%d\n", s.ID)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Auction: %s\n", s.AuctionID)
	fmt.Fprintf(&b, "User: %d\n", s.UserID)
	if s.BidID != nil {
		fmt.Fprintf(&b, "Bid: %s\n", *s.BidID)
	}
	fmt.Fprintf(&b, "Risk score: %d\n", s.Score)
	b.WriteString("Reasons:\n")
	if len(s.Reasons) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range s.Reasons {
		fmt.Fprintf(&b, "- %s: %s (+%d)\n", r.Code, r.Detail, r.Score)
	}
	if s.ResolutionNote != nil && *s.ResolutionNote != "" {
		fmt.Fprintf(&b, "Resolution: %s\n", *s.ResolutionNote)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Auction is a read-only view of an auction used by the evaluator
type Auction struct {
	ID         uuid.UUID
	SellerID   int64
	StartPrice int64
	CreatedAt  time.Time
}

// Bidder is a read-only view of the acting user
type Bidder struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Bid is a read-only view of a placed bid. Removed bids never count
// toward any aggregate used by the evaluator.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	UserID    int64
	Amount    int64
	Removed   bool
	CreatedAt time.Time
}

// BidSample is one bid row projected for windowed analysis
type BidSample struct {
	UserID    int64
	Amount    int64
	CreatedAt time.Time
}
