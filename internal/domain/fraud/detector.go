package fraud

import (
	"context"
	"fmt"
	"time"
)

// Detector runs the windowed heuristics and baseline spike rules against a
// just-accepted bid. Rules are independent and all run every time; reasons
// are informative even when compounded. Each rule reads only aggregate
// counts, ratios or a bounded recent slice from the bid history.
type Detector struct {
	cfg     DetectorConfig
	history BidHistory
}

// NewDetector creates a detector with the given thresholds
func NewDetector(cfg DetectorConfig, history BidHistory) *Detector {
	return &Detector{cfg: cfg, history: history}
}

// evalInput carries the entities under evaluation
type evalInput struct {
	auction *Auction
	bidder  *Bidder
	bid     *Bid
	now     time.Time
}

// Evaluate runs every rule against the bid and returns the partial results in
// presentation order. A failure to compute any aggregate fails the whole
// evaluation: a partial score would under-represent risk.
func (d *Detector) Evaluate(ctx context.Context, in evalInput) ([]Reason, error) {
	var reasons []Reason

	rapid, err := d.rapidBidding(ctx, in)
	if err != nil {
		return nil, err
	}
	if rapid != nil {
		reasons = append(reasons, *rapid)
	}

	dominance, err := d.dominantBidder(ctx, in)
	if err != nil {
		return nil, err
	}
	if dominance != nil {
		reasons = append(reasons, *dominance)
	}

	if newbie := d.newAccountHighBid(in); newbie != nil {
		reasons = append(reasons, *newbie)
	}

	// Duopoly and alternating share one bounded fetch of recent bids
	recent, err := d.history.RecentBids(ctx, in.auction.ID, in.now.Add(-d.cfg.DuopolyWindow), d.cfg.DuopolyMaxBids)
	if err != nil {
		return nil, fmt.Errorf("fetch recent bids: %w", err)
	}

	if duopoly := d.duopolyPattern(in, recent); duopoly != nil {
		reasons = append(reasons, *duopoly)
	}
	if alternating := d.alternatingPair(in, recent); alternating != nil {
		reasons = append(reasons, *alternating)
	}

	increment, err := d.currentIncrement(ctx, in)
	if err != nil {
		return nil, err
	}

	spike, err := d.auctionBaselineSpike(ctx, in, increment)
	if err != nil {
		return nil, err
	}
	if spike != nil {
		reasons = append(reasons, *spike)
	}

	histSpike, err := d.historicalBaselineSpike(ctx, in, increment)
	if err != nil {
		return nil, err
	}
	if histSpike != nil {
		reasons = append(reasons, *histSpike)
	}

	return reasons, nil
}

// rapidBidding flags a burst of bids by the same user inside the trailing
// window. The per-extra-bid step rewards earlier detection of sustained
// bursts; the cap keeps a burst from dominating the total.
func (d *Detector) rapidBidding(ctx context.Context, in evalInput) (*Reason, error) {
	since := in.now.Add(-d.cfg.RapidWindow)
	count, err := d.history.CountBids(ctx, in.auction.ID, &in.bidder.ID, since)
	if err != nil {
		return nil, fmt.Errorf("count rapid bids: %w", err)
	}
	if count < d.cfg.RapidMinBids {
		return nil, nil
	}

	score := d.cfg.RapidBaseScore + (count-d.cfg.RapidMinBids+1)*d.cfg.RapidStepScore
	if score > d.cfg.RapidMaxScore {
		score = d.cfg.RapidMaxScore
	}
	return &Reason{
		Code:   ReasonRapidBidding,
		Detail: fmt.Sprintf("%d bids in %d sec", count, int(d.cfg.RapidWindow.Seconds())),
		Score:  score,
	}, nil
}

// dominantBidder flags a user holding too large a share of the bids placed
// inside the trailing window, once the window holds enough bids to judge
func (d *Detector) dominantBidder(ctx context.Context, in evalInput) (*Reason, error) {
	since := in.now.Add(-d.cfg.DominanceWindow)
	total, err := d.history.CountBids(ctx, in.auction.ID, nil, since)
	if err != nil {
		return nil, fmt.Errorf("count window bids: %w", err)
	}
	if total < d.cfg.DominanceMinTotal {
		return nil, nil
	}

	mine, err := d.history.CountBids(ctx, in.auction.ID, &in.bidder.ID, since)
	if err != nil {
		return nil, fmt.Errorf("count user window bids: %w", err)
	}

	ratio := float64(mine) / float64(total)
	if ratio < d.cfg.DominanceRatio {
		return nil, nil
	}
	return &Reason{
		Code:   ReasonDominantBidder,
		Detail: fmt.Sprintf("share %.2f over %d sec", ratio, int(d.cfg.DominanceWindow.Seconds())),
		Score:  d.cfg.DominanceScore,
	}, nil
}

// newAccountHighBid flags a freshly created account placing a bid well above
// the auction's start price
func (d *Detector) newAccountHighBid(in evalInput) *Reason {
	if in.now.Sub(in.bidder.CreatedAt) >= d.cfg.NewAccountMaxAge {
		return nil
	}
	floor := in.auction.StartPrice * d.cfg.NewAccountStartPriceFactor
	if floor < d.cfg.NewAccountMinAmount {
		floor = d.cfg.NewAccountMinAmount
	}
	if in.bid.Amount < floor {
		return nil
	}
	return &Reason{
		Code:   ReasonNewAccountHighBid,
		Detail: "new account placing a high bid",
		Score:  d.cfg.NewAccountScore,
	}
}

// duopolyPattern flags the triggering user when the two most frequent bidders
// together hold too large a share of the recent bid set
func (d *Detector) duopolyPattern(in evalInput, recent []BidSample) *Reason {
	if len(recent) < d.cfg.DuopolyMinTotal {
		return nil
	}

	counts := make(map[int64]int, len(recent))
	for _, sample := range recent {
		counts[sample.UserID]++
	}
	if len(counts) < 2 {
		return nil
	}

	var topUser, secondUser int64
	var topCount, secondCount int
	for userID, count := range counts {
		switch {
		case count > topCount || (count == topCount && userID < topUser):
			secondUser, secondCount = topUser, topCount
			topUser, topCount = userID, count
		case count > secondCount || (count == secondCount && userID < secondUser):
			secondUser, secondCount = userID, count
		}
	}

	if in.bidder.ID != topUser && in.bidder.ID != secondUser {
		return nil
	}
	pairRatio := float64(topCount+secondCount) / float64(len(recent))
	if pairRatio < d.cfg.DuopolyPairRatio {
		return nil
	}
	return &Reason{
		Code:   ReasonDuopolyPattern,
		Detail: fmt.Sprintf("2 bidders placed %.2f of bids in the window", pairRatio),
		Score:  d.cfg.DuopolyScore,
	}
}

// alternatingPair flags two bidders trading bids back and forth over the most
// recent chain. The chain is the newest AlternatingRecentBids of the recent
// fetch, replayed in chronological order.
func (d *Detector) alternatingPair(in evalInput, recent []BidSample) *Reason {
	chain := recent
	if len(chain) > d.cfg.AlternatingRecentBids {
		chain = chain[:d.cfg.AlternatingRecentBids]
	}
	if len(chain) < 4 {
		return nil
	}

	// recent is newest-first; walk backwards for chronological order
	users := make([]int64, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		users = append(users, chain[i].UserID)
	}

	distinct := make(map[int64]struct{}, 2)
	switches := 0
	for i, userID := range users {
		distinct[userID] = struct{}{}
		if i > 0 && users[i] != users[i-1] {
			switches++
		}
	}

	if len(distinct) != 2 {
		return nil
	}
	if _, ok := distinct[in.bidder.ID]; !ok {
		return nil
	}
	if switches < d.cfg.AlternatingMinSwitches {
		return nil
	}
	return &Reason{
		Code:   ReasonAlternatingPair,
		Detail: fmt.Sprintf("chain of 2 bidders, switches: %d", switches),
		Score:  d.cfg.AlternatingScore,
	}
}
