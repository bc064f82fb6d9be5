package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-auction/internal/bids/db"
	"ms-auction/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Bid)(nil)))

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func sampleBid(id, bidder string, amount int64, placedAt time.Time) models.Bid {
	return models.Bid{
		BidID:     id,
		SessionID: "session-1",
		LotID:     "lot-1",
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(amount),
		Status:    models.BidValid,
		PlacedAt:  placedAt,
	}
}

func TestIdempotencyKeyLookup(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	bid := sampleBid("bid-1", "bidder-1", 110, now)
	bid.IdempotencyKey = "key-1"
	require.NoError(t, store.CreateBid(bid))

	found, err := store.GetBidByIdempotencyKey("lot-1", "bidder-1", "key-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "bid-1", found.BidID)

	// Same key, different bidder: no match.
	missing, err := store.GetBidByIdempotencyKey("lot-1", "bidder-2", "key-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = store.GetBidByIdempotencyKey("lot-1", "bidder-1", "other-key")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMarkOutbidExceptSparesWinnerAndInvalid(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	require.NoError(t, store.CreateBid(sampleBid("bid-1", "bidder-1", 110, now)))
	require.NoError(t, store.CreateBid(sampleBid("bid-2", "bidder-2", 120, now.Add(time.Second))))

	lost := sampleBid("bid-3", "bidder-3", 120, now.Add(2*time.Second))
	lost.Status = models.BidInvalid
	require.NoError(t, store.CreateBid(lost))

	require.NoError(t, store.MarkOutbidExcept("lot-1", "bid-2"))
	require.NoError(t, store.UpdateBidStatus("bid-2", models.BidWinning))

	bids, err := store.ListBidsByLot("lot-1", true)
	require.NoError(t, err)
	require.Len(t, bids, 3)

	statuses := map[string]models.BidStatus{}
	for _, b := range bids {
		statuses[b.BidID] = b.Status
	}
	assert.Equal(t, models.BidOutbid, statuses["bid-1"])
	assert.Equal(t, models.BidWinning, statuses["bid-2"])
	assert.Equal(t, models.BidInvalid, statuses["bid-3"], "invalid history is never touched")
}

func TestGetWinningBid(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	winner := sampleBid("bid-1", "bidder-1", 110, now)
	winner.Status = models.BidWinning
	require.NoError(t, store.CreateBid(winner))

	got, err := store.GetWinningBid("lot-1")
	require.NoError(t, err)
	assert.Equal(t, "bid-1", got.BidID)

	_, err = store.GetWinningBid("lot-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetBid(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	require.NoError(t, store.CreateBid(sampleBid("bid-1", "bidder-1", 110, now)))

	got, err := store.GetBid("bid-1")
	require.NoError(t, err)
	assert.Equal(t, "bidder-1", got.BidderID)

	_, err = store.GetBid("bid-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestHighestLiveBidExcept(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	outbid := sampleBid("bid-1", "bidder-1", 110, now)
	outbid.Status = models.BidOutbid
	require.NoError(t, store.CreateBid(outbid))

	winner := sampleBid("bid-2", "bidder-2", 120, now.Add(time.Second))
	winner.Status = models.BidWinning
	require.NoError(t, store.CreateBid(winner))

	lost := sampleBid("bid-3", "bidder-3", 130, now.Add(2*time.Second))
	lost.Status = models.BidInvalid
	require.NoError(t, store.CreateBid(lost))

	// Withdrawing the leader falls back to the outbid runner-up; invalid
	// history never wins.
	next, err := store.HighestLiveBidExcept("lot-1", "bid-2")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "bid-1", next.BidID)

	// Withdrawing a runner-up keeps the leader on top.
	next, err = store.HighestLiveBidExcept("lot-1", "bid-1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "bid-2", next.BidID)

	none, err := store.HighestLiveBidExcept("lot-2", "bid-1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListBidsByLotNewestFirst(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().Round(time.Second)

	require.NoError(t, store.CreateBid(sampleBid("bid-1", "bidder-1", 110, now)))
	require.NoError(t, store.CreateBid(sampleBid("bid-2", "bidder-2", 120, now.Add(time.Second))))

	lost := sampleBid("bid-3", "bidder-3", 120, now.Add(2*time.Second))
	lost.Status = models.BidInvalid
	require.NoError(t, store.CreateBid(lost))

	visible, err := store.ListBidsByLot("lot-1", false)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "bid-2", visible[0].BidID, "newest first")

	all, err := store.ListBidsByLot("lot-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
