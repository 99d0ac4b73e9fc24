package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotline/sentinel/internal/adapters/database"
	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/pkg/testhelpers"
)

func TestBidHistoryRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer td.Close()

	repo := database.NewPostgresBidHistoryRepository(td.Pool)
	ctx := context.Background()

	now := time.Now().UTC()
	seedUser(t, td.Pool, 1, false, now.Add(-72*time.Hour))
	seedUser(t, td.Pool, 7, true, now.Add(-48*time.Hour))
	seedUser(t, td.Pool, 9, false, now.Add(-48*time.Hour))

	auctionID := seedAuction(t, td.Pool, 1, 100, "ACTIVE")
	// Chronological bids: user 7, user 9, a removed one, then user 7 again
	seedBid(t, td.Pool, auctionID, 7, 110, false, now.Add(-4*time.Minute))
	seedBid(t, td.Pool, auctionID, 9, 120, false, now.Add(-3*time.Minute))
	seedBid(t, td.Pool, auctionID, 9, 130, true, now.Add(-2*time.Minute))
	lastBidID := seedBid(t, td.Pool, auctionID, 7, 140, false, now.Add(-1*time.Minute))

	t.Run("GetAuction and GetBidder and GetBid", func(t *testing.T) {
		auction, err := repo.GetAuction(ctx, auctionID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), auction.StartPrice)
		assert.Equal(t, int64(1), auction.SellerID)

		bidder, err := repo.GetBidder(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), bidder.ID)

		bid, err := repo.GetBid(ctx, lastBidID)
		require.NoError(t, err)
		assert.Equal(t, int64(140), bid.Amount)
		assert.False(t, bid.Removed)
	})

	t.Run("CountBids excludes removed bids and filters by user", func(t *testing.T) {
		since := now.Add(-10 * time.Minute)

		total, err := repo.CountBids(ctx, auctionID, nil, since)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		user := int64(7)
		mine, err := repo.CountBids(ctx, auctionID, &user, since)
		require.NoError(t, err)
		assert.Equal(t, 2, mine)

		recent, err := repo.CountBids(ctx, auctionID, nil, now.Add(-90*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, recent)
	})

	t.Run("RecentBids is newest first", func(t *testing.T) {
		samples, err := repo.RecentBids(ctx, auctionID, now.Add(-10*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, samples, 3)
		assert.Equal(t, int64(140), samples[0].Amount)
		assert.Equal(t, int64(110), samples[2].Amount)

		limited, err := repo.RecentBids(ctx, auctionID, now.Add(-10*time.Minute), 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("OrderedAmounts is oldest first", func(t *testing.T) {
		amounts, err := repo.OrderedAmounts(ctx, auctionID, now.Add(-10*time.Minute), 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{110, 120, 140}, amounts)
	})

	t.Run("PreviousBidAmount excludes the given bid", func(t *testing.T) {
		amount, found, err := repo.PreviousBidAmount(ctx, auctionID, lastBidID)
		require.NoError(t, err)
		require.True(t, found)
		// The removed 130 must not count
		assert.Equal(t, int64(120), amount)
	})

	t.Run("missing entities map to domain errors", func(t *testing.T) {
		_, err := repo.GetBidder(ctx, 12345)
		assert.ErrorIs(t, err, fraud.ErrBidderNotFound)
	})
}

func TestBidHistoryRepository_HistoricalIncrements(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer td.Close()

	repo := database.NewPostgresBidHistoryRepository(td.Pool)
	ctx := context.Background()

	now := time.Now().UTC()
	seedUser(t, td.Pool, 1, false, now.Add(-72*time.Hour))
	seedUser(t, td.Pool, 7, false, now.Add(-48*time.Hour))

	current := seedAuction(t, td.Pool, 1, 100, "ACTIVE")
	seedBid(t, td.Pool, current, 7, 500, false, now)

	// Completed auction in band: increments 20 (vs start) and 30
	ended := seedAuction(t, td.Pool, 1, 100, "ENDED")
	seedBid(t, td.Pool, ended, 7, 120, false, now.Add(-2*time.Hour))
	seedBid(t, td.Pool, ended, 7, 150, false, now.Add(-1*time.Hour))

	// Completed but outside the start-price band
	farBand := seedAuction(t, td.Pool, 1, 1000, "ENDED")
	seedBid(t, td.Pool, farBand, 7, 1100, false, now.Add(-2*time.Hour))
	seedBid(t, td.Pool, farBand, 7, 1300, false, now.Add(-1*time.Hour))

	// Completed with a single bid: no usable increment chain
	single := seedAuction(t, td.Pool, 1, 100, "ENDED")
	seedBid(t, td.Pool, single, 7, 400, false, now.Add(-1*time.Hour))

	// Still active: never pooled
	active := seedAuction(t, td.Pool, 1, 100, "ACTIVE")
	seedBid(t, td.Pool, active, 7, 130, false, now.Add(-2*time.Hour))
	seedBid(t, td.Pool, active, 7, 180, false, now.Add(-1*time.Hour))

	increments, err := repo.HistoricalIncrements(ctx, current, 50, 200, 30)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{20, 30}, increments)
}
