package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lotline/sentinel/pkg/database"
	"github.com/lotline/sentinel/pkg/events"
)

// EventTypeSignalCreated is the routing key for new-signal outbox events
const EventTypeSignalCreated = "fraud.signal.created"

// SignalCreatedEvent is the payload published when a signal is persisted
type SignalCreatedEvent struct {
	SignalID  int64      `json:"signal_id"`
	AuctionID uuid.UUID  `json:"auction_id"`
	UserID    int64      `json:"user_id"`
	BidID     *uuid.UUID `json:"bid_id,omitempty"`
	Score     int        `json:"score"`
	CreatedAt time.Time  `json:"created_at"`
}

// Service implements bid evaluation and the signal lifecycle
type Service struct {
	cfg       DetectorConfig
	detector  *Detector
	history   BidHistory
	signals   SignalRepository
	outbox    OutboxRepository
	dedup     DedupGuard
	txManager database.TransactionManager
	logger    *slog.Logger
}

// NewService creates the fraud service. dedup may be nil, in which case only
// the repository dedup check applies.
func NewService(
	cfg DetectorConfig,
	history BidHistory,
	signals SignalRepository,
	outbox OutboxRepository,
	dedup DedupGuard,
	txManager database.TransactionManager,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		detector:  NewDetector(cfg, history),
		history:   history,
		signals:   signals,
		outbox:    outbox,
		dedup:     dedup,
		txManager: txManager,
		logger:    logger,
	}
}

// EvaluateBidCommand identifies the bid to evaluate
type EvaluateBidCommand struct {
	AuctionID uuid.UUID
	UserID    int64
	BidID     uuid.UUID
}

// EvaluateBid runs every detection rule against the bid, sums the partial
// scores and conditionally persists a new OPEN signal. It returns the new
// signal's ID and true when a signal was created. A total below the alert
// threshold or a suppressed duplicate is the normal outcome, not an error,
// and leaves no record behind.
//
// Creation is deliberately optimistic: no lock is held across evaluation,
// and a true race between two concurrent evaluations for the same
// (auction, user) pair can still produce two signals. That is an accepted
// low-severity outcome versus locking the hot bidding path.
func (s *Service) EvaluateBid(ctx context.Context, cmd EvaluateBidCommand) (int64, bool, error) {
	auction, err := s.history.GetAuction(ctx, cmd.AuctionID)
	if err != nil {
		return 0, false, fmt.Errorf("load auction: %w", err)
	}
	bidder, err := s.history.GetBidder(ctx, cmd.UserID)
	if err != nil {
		return 0, false, fmt.Errorf("load bidder: %w", err)
	}
	bid, err := s.history.GetBid(ctx, cmd.BidID)
	if err != nil {
		return 0, false, fmt.Errorf("load bid: %w", err)
	}

	now := time.Now().UTC()
	reasons, err := s.detector.Evaluate(ctx, evalInput{
		auction: auction,
		bidder:  bidder,
		bid:     bid,
		now:     now,
	})
	if err != nil {
		return 0, false, fmt.Errorf("evaluate bid: %w", err)
	}

	total := 0
	for _, reason := range reasons {
		total += reason.Score
	}
	if total < s.cfg.AlertThreshold {
		return 0, false, nil
	}

	if s.dedup != nil {
		first, dedupErr := s.dedup.FirstSeen(ctx, cmd.AuctionID, cmd.UserID, s.cfg.DedupWindow)
		if dedupErr != nil {
			// The guard is a fast path; the repository check below stays authoritative
			s.logger.Warn("dedup guard unavailable", "error", dedupErr)
		} else if !first {
			return 0, false, nil
		}
	}

	duplicate, err := s.signals.HasRecentOpenSignal(ctx, cmd.AuctionID, cmd.UserID, now.Add(-s.cfg.DedupWindow))
	if err != nil {
		return 0, false, fmt.Errorf("check duplicate signal: %w", err)
	}
	if duplicate {
		return 0, false, nil
	}

	signal := &FraudSignal{
		AuctionID: cmd.AuctionID,
		UserID:    cmd.UserID,
		BidID:     &cmd.BidID,
		Score:     total,
		Reasons:   reasons,
		Status:    SignalStatusOpen,
		CreatedAt: now,
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if createErr := s.signals.CreateSignal(ctx, tx, signal); createErr != nil {
		return 0, false, fmt.Errorf("failed to save signal: %w", createErr)
	}

	payload, err := json.Marshal(SignalCreatedEvent{
		SignalID:  signal.ID,
		AuctionID: signal.AuctionID,
		UserID:    signal.UserID,
		BidID:     signal.BidID,
		Score:     signal.Score,
		CreatedAt: signal.CreatedAt,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: EventTypeSignalCreated,
		Payload:   payload,
		Status:    events.OutboxStatusPending,
		CreatedAt: now,
	}
	if saveErr := s.outbox.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
		return 0, false, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return 0, false, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	s.logger.Info("fraud signal created",
		"signal_id", signal.ID,
		"auction_id", signal.AuctionID,
		"user_id", signal.UserID,
		"score", signal.Score,
	)
	return signal.ID, true, nil
}

// ResolveSignalCommand carries a moderator's disposition of a signal
type ResolveSignalCommand struct {
	SignalID   int64
	ResolverID int64
	Status     SignalStatus
	Note       string
}

// ResolveSignal applies the OPEN -> {CONFIRMED, DISMISSED} transition under
// row-level mutual exclusion. Resolving to the same terminal status twice is
// an idempotent success without mutation; resolving to a different terminal
// status is rejected.
func (s *Service) ResolveSignal(ctx context.Context, cmd ResolveSignalCommand) (*FraudSignal, error) {
	if !cmd.Status.IsTerminal() {
		return nil, ErrInvalidStatus
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	signal, err := s.signals.GetSignalForUpdate(ctx, tx, cmd.SignalID)
	if err != nil {
		return nil, err
	}

	if signal.Status == cmd.Status {
		return signal, nil
	}
	if signal.Status != SignalStatusOpen {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	signal.Status = cmd.Status
	signal.ResolvedBy = &cmd.ResolverID
	signal.ResolutionNote = &cmd.Note
	signal.ResolvedAt = &now

	if updateErr := s.signals.UpdateResolution(ctx, tx, signal); updateErr != nil {
		return nil, fmt.Errorf("failed to update signal: %w", updateErr)
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	s.logger.Info("fraud signal resolved",
		"signal_id", signal.ID,
		"status", signal.Status,
		"resolver_id", cmd.ResolverID,
	)
	return signal, nil
}

// GetSignal retrieves a signal by its ID
func (s *Service) GetSignal(ctx context.Context, signalID int64) (*FraudSignal, error) {
	return s.signals.GetSignal(ctx, signalID)
}

// ListSignals returns signals for moderator review queues, newest first.
// Pagination is the caller's concern; limits are clamped to sane bounds.
func (s *Service) ListSignals(ctx context.Context, q ListSignalsQuery) ([]*FraudSignal, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.signals.ListSignals(ctx, q)
}

// HasOpenSignalForBid reports whether an OPEN signal is anchored to the bid
func (s *Service) HasOpenSignalForBid(ctx context.Context, bidID uuid.UUID) (bool, error) {
	return s.signals.HasOpenSignalForBid(ctx, bidID)
}
