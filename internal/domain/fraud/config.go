package fraud

import (
	"fmt"
	"time"
)

// DetectorConfig carries every tunable threshold used by bid evaluation.
// Evaluators receive it at construction time so tests can supply
// deterministic values per case.
type DetectorConfig struct {
	// AlertThreshold is the minimum total score that persists a signal
	AlertThreshold int
	// DedupWindow suppresses repeat signals for the same (auction, user) pair
	DedupWindow time.Duration

	// Rapid bidding: count of the user's bids inside RapidWindow
	RapidWindow    time.Duration
	RapidMinBids   int
	RapidBaseScore int
	RapidStepScore int
	RapidMaxScore  int

	// Dominance: the user's share of all bids inside DominanceWindow
	DominanceWindow   time.Duration
	DominanceMinTotal int
	DominanceRatio    float64
	DominanceScore    int

	// New account placing a high bid
	NewAccountMaxAge           time.Duration
	NewAccountStartPriceFactor int64
	NewAccountMinAmount        int64
	NewAccountScore            int

	// Duopoly: the top two bidders' combined share of the recent set
	DuopolyWindow    time.Duration
	DuopolyMinTotal  int
	DuopolyMaxBids   int
	DuopolyPairRatio float64
	DuopolyScore     int

	// Alternating pair: adjacent-bidder switches over the recent chain
	AlternatingRecentBids  int
	AlternatingMinSwitches int
	AlternatingScore       int

	// In-auction increment baseline
	BaselineWindow       time.Duration
	BaselineMinBids      int
	BaselineMaxBids      int
	BaselineSpikeFactor  float64
	BaselineMinIncrement int64
	BaselineSpikeScore   int

	// Cross-auction historical increment baseline
	HistoricalMaxAuctions    int
	HistoricalMinPoints      int
	HistoricalSpikeFactor    float64
	HistoricalMinIncrement   int64
	HistoricalSpikeScore     int
	HistoricalStartRatioLow  float64
	HistoricalStartRatioHigh float64
}

// DefaultDetectorConfig returns the hand-tuned production thresholds
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		AlertThreshold: 60,
		DedupWindow:    10 * time.Minute,

		RapidWindow:    120 * time.Second,
		RapidMinBids:   5,
		RapidBaseScore: 20,
		RapidStepScore: 5,
		RapidMaxScore:  45,

		DominanceWindow:   300 * time.Second,
		DominanceMinTotal: 8,
		DominanceRatio:    0.7,
		DominanceScore:    30,

		NewAccountMaxAge:           24 * time.Hour,
		NewAccountStartPriceFactor: 3,
		NewAccountMinAmount:        150,
		NewAccountScore:            20,

		DuopolyWindow:    300 * time.Second,
		DuopolyMinTotal:  10,
		DuopolyMaxBids:   40,
		DuopolyPairRatio: 0.85,
		DuopolyScore:     25,

		AlternatingRecentBids:  8,
		AlternatingMinSwitches: 6,
		AlternatingScore:       20,

		BaselineWindow:       3600 * time.Second,
		BaselineMinBids:      6,
		BaselineMaxBids:      80,
		BaselineSpikeFactor:  4.0,
		BaselineMinIncrement: 50,
		BaselineSpikeScore:   25,

		HistoricalMaxAuctions:    30,
		HistoricalMinPoints:      25,
		HistoricalSpikeFactor:    3.0,
		HistoricalMinIncrement:   40,
		HistoricalSpikeScore:     20,
		HistoricalStartRatioLow:  0.5,
		HistoricalStartRatioHigh: 2.0,
	}
}

// Validate checks the config for values that would break detection.
// Called once at startup; a failure here is fatal, not per-call.
func (c DetectorConfig) Validate() error {
	checks := []struct {
		ok   bool
		name string
	}{
		{c.AlertThreshold > 0, "alert threshold must be positive"},
		{c.DedupWindow > 0, "dedup window must be positive"},
		{c.RapidWindow > 0, "rapid window must be positive"},
		{c.RapidMinBids > 0, "rapid min bids must be positive"},
		{c.RapidBaseScore > 0 && c.RapidStepScore > 0, "rapid scores must be positive"},
		{c.RapidMaxScore >= c.RapidBaseScore, "rapid max score must be >= base score"},
		{c.DominanceWindow > 0, "dominance window must be positive"},
		{c.DominanceMinTotal > 0, "dominance min total must be positive"},
		{c.DominanceRatio > 0 && c.DominanceRatio <= 1, "dominance ratio must be in (0, 1]"},
		{c.DominanceScore > 0, "dominance score must be positive"},
		{c.NewAccountMaxAge > 0, "new account max age must be positive"},
		{c.NewAccountStartPriceFactor > 0, "new account start price factor must be positive"},
		{c.NewAccountMinAmount > 0, "new account min amount must be positive"},
		{c.NewAccountScore > 0, "new account score must be positive"},
		{c.DuopolyWindow > 0, "duopoly window must be positive"},
		{c.DuopolyMinTotal > 1, "duopoly min total must exceed 1"},
		{c.DuopolyMaxBids >= c.DuopolyMinTotal, "duopoly max bids must be >= min total"},
		{c.DuopolyPairRatio > 0 && c.DuopolyPairRatio <= 1, "duopoly pair ratio must be in (0, 1]"},
		{c.DuopolyScore > 0, "duopoly score must be positive"},
		{c.AlternatingRecentBids >= 4, "alternating recent bids must be >= 4"},
		{c.AlternatingMinSwitches > 0, "alternating min switches must be positive"},
		{c.AlternatingScore > 0, "alternating score must be positive"},
		{c.BaselineWindow > 0, "baseline window must be positive"},
		{c.BaselineMinBids > 1, "baseline min bids must exceed 1"},
		{c.BaselineMaxBids >= c.BaselineMinBids, "baseline max bids must be >= min bids"},
		{c.BaselineSpikeFactor > 1, "baseline spike factor must exceed 1"},
		{c.BaselineMinIncrement > 0, "baseline min increment must be positive"},
		{c.BaselineSpikeScore > 0, "baseline spike score must be positive"},
		{c.HistoricalMaxAuctions > 0, "historical max auctions must be positive"},
		{c.HistoricalMinPoints > 0, "historical min points must be positive"},
		{c.HistoricalSpikeFactor > 1, "historical spike factor must exceed 1"},
		{c.HistoricalMinIncrement > 0, "historical min increment must be positive"},
		{c.HistoricalSpikeScore > 0, "historical spike score must be positive"},
		{c.HistoricalStartRatioLow > 0, "historical start ratio low must be positive"},
		{c.HistoricalStartRatioHigh >= c.HistoricalStartRatioLow, "historical start ratio high must be >= low"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("detector config: %s", check.name)
		}
	}
	return nil
}
