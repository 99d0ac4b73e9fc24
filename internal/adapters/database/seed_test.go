package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, pool *pgxpool.Pool, id int64, verified bool, createdAt time.Time) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, username, is_verified, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		id, "user", verified, createdAt,
	)
	require.NoError(t, err)
}

func seedAuction(t *testing.T, pool *pgxpool.Pool, sellerID int64, startPrice int64, status string) uuid.UUID {
	t.Helper()
	auctionID := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO auctions (id, seller_id, start_price, status, ends_at) VALUES ($1, $2, $3, $4, $5)`,
		auctionID, sellerID, startPrice, status, time.Now().Add(24*time.Hour),
	)
	require.NoError(t, err)
	return auctionID
}

func seedBid(t *testing.T, pool *pgxpool.Pool, auctionID uuid.UUID, userID int64, amount int64, removed bool, createdAt time.Time) uuid.UUID {
	t.Helper()
	bidID := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO bids (id, auction_id, user_id, amount, is_removed, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		bidID, auctionID, userID, amount, removed, createdAt,
	)
	require.NoError(t, err)
	return bidID
}
