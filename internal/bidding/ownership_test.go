package bidding

import (
	"testing"
	"time"

	"github.com/ksred/innovest-portal/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bid(id string, investor int64, amount, equity int64) types.Bid {
	return types.Bid{
		OrderID:     types.OrderID(id),
		InventionID: 4001,
		InvestorID:  investor,
		BidAmount:   decimal.NewFromInt(amount),
		Equity:      decimal.NewFromInt(equity),
	}
}

func TestAnnotateOwnership(t *testing.T) {
	input := []types.Bid{
		bid("1", 6634104, 5000, 8),
		bid("2", 42, 7000, 10),
		bid("3", 6634104, 100, 1),
	}
	input[1].IsMine = true // stale flag from elsewhere

	out := AnnotateOwnership(input, 6634104)
	require.Len(t, out, 3)
	assert.True(t, out[0].IsMine)
	assert.False(t, out[1].IsMine)
	assert.True(t, out[2].IsMine)

	// input untouched
	assert.False(t, input[0].IsMine)
	assert.True(t, input[1].IsMine)

	// idempotent
	assert.Equal(t, out, AnnotateOwnership(out, 6634104))
	assert.Equal(t, out, AnnotateOwnership(input, 6634104))
}

func TestAnnotateOwnershipEmpty(t *testing.T) {
	assert.Empty(t, AnnotateOwnership(nil, 1))
	assert.NotNil(t, AnnotateOwnership(nil, 1))
}

func TestHasExistingBid(t *testing.T) {
	mine := AnnotateOwnership([]types.Bid{bid("1", 7, 1, 1)}, 7)
	other := AnnotateOwnership([]types.Bid{bid("1", 8, 1, 1)}, 7)

	assert.True(t, HasExistingBid(mine, false))
	assert.False(t, HasExistingBid(other, false))
	assert.True(t, HasExistingBid(other, true))
	assert.True(t, HasExistingBid(nil, true))
	assert.False(t, HasExistingBid(nil, false))
}

func TestReconcile(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ttl := 2 * time.Minute

	t.Run("server wins for listed pending bid", func(t *testing.T) {
		placed := bid("9", 6634104, 5000, 8)
		server := bid("9", 6634104, 5000, 8)
		server.Selected = true

		res := Reconcile([]types.Bid{server, bid("1", 42, 10, 1)},
			[]PendingBid{{Bid: placed, PlacedAt: now}}, 6634104, now, ttl)

		require.Len(t, res.Bids, 2)
		assert.True(t, res.Bids[0].Selected)
		assert.True(t, res.Bids[0].IsMine)
		assert.Len(t, res.Confirmed, 1)
		assert.Empty(t, res.Pending)
	})

	t.Run("unlisted pending bid kept within ttl", func(t *testing.T) {
		placed := bid("9", 6634104, 5000, 8)
		res := Reconcile([]types.Bid{bid("1", 42, 10, 1)},
			[]PendingBid{{Bid: placed, PlacedAt: now.Add(-time.Minute)}}, 6634104, now, ttl)

		require.Len(t, res.Bids, 2)
		assert.Equal(t, types.OrderID("9"), res.Bids[0].OrderID)
		assert.True(t, res.Bids[0].IsMine)
		assert.Len(t, res.Pending, 1)
		assert.Empty(t, res.Expired)
	})

	t.Run("unlisted pending bid expires after ttl", func(t *testing.T) {
		placed := bid("9", 6634104, 5000, 8)
		res := Reconcile([]types.Bid{bid("1", 42, 10, 1)},
			[]PendingBid{{Bid: placed, PlacedAt: now.Add(-ttl)}}, 6634104, now, ttl)

		require.Len(t, res.Bids, 1)
		assert.Equal(t, types.OrderID("1"), res.Bids[0].OrderID)
		assert.Len(t, res.Expired, 1)
		assert.Empty(t, res.Pending)
	})

	t.Run("local id confirmed by any listed bid of the investor", func(t *testing.T) {
		placed := bid(localIDPrefix+"abc", 6634104, 5000, 8)
		res := Reconcile([]types.Bid{bid("77", 6634104, 5000, 8)},
			[]PendingBid{{Bid: placed, PlacedAt: now}}, 6634104, now, ttl)

		require.Len(t, res.Bids, 1)
		assert.Equal(t, types.OrderID("77"), res.Bids[0].OrderID)
		assert.Len(t, res.Confirmed, 1)
	})

	t.Run("duplicate server ids collapse", func(t *testing.T) {
		res := Reconcile([]types.Bid{bid("1", 42, 10, 1), bid("1", 42, 10, 1)}, nil, 6634104, now, ttl)
		assert.Len(t, res.Bids, 1)
	})
}
