package fraud

import (
	"context"
	"fmt"
	"sort"
)

// currentIncrement computes the evaluated bid's increment: amount minus the
// previous non-removed bid's amount, or minus the auction start price when
// this is the first bid. Never negative.
func (d *Detector) currentIncrement(ctx context.Context, in evalInput) (int64, error) {
	prev, found, err := d.history.PreviousBidAmount(ctx, in.auction.ID, in.bid.ID)
	if err != nil {
		return 0, fmt.Errorf("fetch previous bid amount: %w", err)
	}
	base := in.auction.StartPrice
	if found {
		base = prev
	}
	increment := in.bid.Amount - base
	if increment < 0 {
		increment = 0
	}
	return increment, nil
}

// auctionBaselineSpike compares the current increment against a median of the
// auction's own recent increments. Median, not mean: increment distributions
// are right-skewed with occasional legitimate large jumps, and a mean would
// raise the bar for detecting manipulation.
func (d *Detector) auctionBaselineSpike(ctx context.Context, in evalInput, increment int64) (*Reason, error) {
	amounts, err := d.history.OrderedAmounts(ctx, in.auction.ID, in.now.Add(-d.cfg.BaselineWindow), d.cfg.BaselineMaxBids)
	if err != nil {
		return nil, fmt.Errorf("fetch baseline amounts: %w", err)
	}
	if len(amounts) < d.cfg.BaselineMinBids {
		return nil, nil
	}

	increments := make([]int64, 0, len(amounts)-1)
	for i := 1; i < len(amounts); i++ {
		diff := amounts[i] - amounts[i-1]
		if diff < 0 {
			diff = 0
		}
		increments = append(increments, diff)
	}

	// Exclude the most recent increment (the one under evaluation) and
	// zero/negative increments from the baseline
	historical := make([]int64, 0, len(increments))
	for _, value := range increments[:len(increments)-1] {
		if value > 0 {
			historical = append(historical, value)
		}
	}

	minPoints := d.cfg.BaselineMinBids - 1
	if minPoints < 1 {
		minPoints = 1
	}
	if len(historical) < minPoints {
		return nil, nil
	}

	med := median(historical)
	threshold := int64(med * d.cfg.BaselineSpikeFactor)
	if threshold < d.cfg.BaselineMinIncrement {
		threshold = d.cfg.BaselineMinIncrement
	}
	if increment < threshold {
		return nil, nil
	}
	return &Reason{
		Code:   ReasonBaselineSpike,
		Detail: fmt.Sprintf("jump +%d, median %.1f, threshold %d", increment, med, threshold),
		Score:  d.cfg.BaselineSpikeScore,
	}, nil
}

// historicalBaselineSpike compares the current increment against a median of
// increments pooled from completed auctions in the same start-price band.
// This catches manipulation in auctions too young to have built their own
// reliable baseline.
func (d *Detector) historicalBaselineSpike(ctx context.Context, in evalInput, increment int64) (*Reason, error) {
	startMin := int64(float64(in.auction.StartPrice) * d.cfg.HistoricalStartRatioLow)
	if startMin < 1 {
		startMin = 1
	}
	startMax := int64(float64(in.auction.StartPrice) * d.cfg.HistoricalStartRatioHigh)
	if startMax < startMin {
		startMax = startMin
	}

	increments, err := d.history.HistoricalIncrements(ctx, in.auction.ID, startMin, startMax, d.cfg.HistoricalMaxAuctions)
	if err != nil {
		return nil, fmt.Errorf("fetch historical increments: %w", err)
	}
	if len(increments) < d.cfg.HistoricalMinPoints {
		return nil, nil
	}

	med := median(increments)
	threshold := int64(med * d.cfg.HistoricalSpikeFactor)
	if threshold < d.cfg.HistoricalMinIncrement {
		threshold = d.cfg.HistoricalMinIncrement
	}
	if increment < threshold {
		return nil, nil
	}
	return &Reason{
		Code:   ReasonHistoricalBaselineSpike,
		Detail: fmt.Sprintf("+%d vs historical median %.1f, threshold %d, sample %d", increment, med, threshold, len(increments)),
		Score:  d.cfg.HistoricalSpikeScore,
	}, nil
}

// median returns the middle value of the set, averaging the two middle values
// for even-sized sets. The input slice is not modified.
func median(values []int64) float64 {
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
