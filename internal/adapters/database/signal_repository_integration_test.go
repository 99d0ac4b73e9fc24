package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotline/sentinel/internal/adapters/database"
	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/pkg/testhelpers"
)

func TestSignalRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer td.Close()

	repo := database.NewPostgresSignalRepository(td.Pool)
	ctx := context.Background()

	now := time.Now().UTC()
	seedUser(t, td.Pool, 1, false, now.Add(-72*time.Hour))
	seedUser(t, td.Pool, 7, false, now.Add(-48*time.Hour))
	auctionID := seedAuction(t, td.Pool, 1, 100, "ACTIVE")
	bidID := seedBid(t, td.Pool, auctionID, 7, 500, false, now)

	newSignal := func() *fraud.FraudSignal {
		return &fraud.FraudSignal{
			AuctionID: auctionID,
			UserID:    7,
			BidID:     &bidID,
			Score:     65,
			Reasons: []fraud.Reason{
				{Code: fraud.ReasonRapidBidding, Detail: "8 bids in 120 sec", Score: 40},
				{Code: fraud.ReasonDuopolyPattern, Detail: "2 bidders placed 0.90 of bids in the window", Score: 25},
			},
			Status:    fraud.SignalStatusOpen,
			CreatedAt: now,
		}
	}

	createSignal := func(t *testing.T, signal *fraud.FraudSignal) {
		t.Helper()
		tx, err := td.Pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		require.NoError(t, repo.CreateSignal(ctx, tx, signal))
		require.NoError(t, tx.Commit(ctx))
	}

	t.Run("CreateSignal assigns an ID and round-trips reasons", func(t *testing.T) {
		signal := newSignal()
		createSignal(t, signal)
		require.NotZero(t, signal.ID)

		got, err := repo.GetSignal(ctx, signal.ID)
		require.NoError(t, err)
		assert.Equal(t, signal.AuctionID, got.AuctionID)
		assert.Equal(t, signal.UserID, got.UserID)
		assert.Equal(t, bidID, *got.BidID)
		assert.Equal(t, 65, got.Score)
		assert.Equal(t, fraud.SignalStatusOpen, got.Status)
		require.Len(t, got.Reasons, 2)
		assert.Equal(t, fraud.ReasonRapidBidding, got.Reasons[0].Code)
		assert.Equal(t, 40, got.Reasons[0].Score)
	})

	t.Run("GetSignal unknown ID", func(t *testing.T) {
		_, err := repo.GetSignal(ctx, 99999)
		assert.ErrorIs(t, err, fraud.ErrSignalNotFound)
	})

	t.Run("HasRecentOpenSignal honors the cutoff", func(t *testing.T) {
		found, err := repo.HasRecentOpenSignal(ctx, auctionID, 7, now.Add(-10*time.Minute))
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.HasRecentOpenSignal(ctx, auctionID, 7, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, found)

		found, err = repo.HasRecentOpenSignal(ctx, auctionID, 999, now.Add(-10*time.Minute))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("HasOpenSignalForBid", func(t *testing.T) {
		found, err := repo.HasOpenSignalForBid(ctx, bidID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.HasOpenSignalForBid(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("resolution round-trip under row lock", func(t *testing.T) {
		signal := newSignal()
		createSignal(t, signal)

		tx, err := td.Pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		locked, err := repo.GetSignalForUpdate(ctx, tx, signal.ID)
		require.NoError(t, err)
		assert.Equal(t, fraud.SignalStatusOpen, locked.Status)

		resolver := int64(9)
		note := "confirmed sockpuppets"
		resolvedAt := time.Now().UTC()
		locked.Status = fraud.SignalStatusConfirmed
		locked.ResolvedBy = &resolver
		locked.ResolutionNote = &note
		locked.ResolvedAt = &resolvedAt

		require.NoError(t, repo.UpdateResolution(ctx, tx, locked))
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.GetSignal(ctx, signal.ID)
		require.NoError(t, err)
		assert.Equal(t, fraud.SignalStatusConfirmed, got.Status)
		assert.Equal(t, resolver, *got.ResolvedBy)
		assert.Equal(t, note, *got.ResolutionNote)
		assert.NotNil(t, got.ResolvedAt)
	})

	t.Run("ListSignals filters by auction and status", func(t *testing.T) {
		openStatus := fraud.SignalStatusOpen
		signals, err := repo.ListSignals(ctx, fraud.ListSignalsQuery{
			AuctionID: &auctionID,
			Status:    &openStatus,
			Limit:     10,
		})
		require.NoError(t, err)
		require.NotEmpty(t, signals)
		for _, signal := range signals {
			assert.Equal(t, auctionID, signal.AuctionID)
			assert.Equal(t, fraud.SignalStatusOpen, signal.Status)
		}

		otherAuction := uuid.New()
		signals, err = repo.ListSignals(ctx, fraud.ListSignalsQuery{AuctionID: &otherAuction, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, signals)
	})
}
