package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"autopilot/internal/types"
)

func TestBuyThenSellRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New(100000)

	buy, err := b.PlaceOrder(ctx, "AAPL", 10, types.ActionBuy)
	assert.NoError(t, err)
	assert.Equal(t, "filled", buy.Status)
	assert.NotEmpty(t, buy.ID)

	positions, err := b.GetPositions(ctx)
	assert.NoError(t, err)
	if assert.Len(t, positions, 1) {
		assert.Equal(t, "AAPL", positions[0].Symbol)
		assert.Equal(t, 10, positions[0].Qty)
	}

	sell, err := b.PlaceOrder(ctx, "AAPL", 10, types.ActionSell)
	assert.NoError(t, err)
	assert.Equal(t, buy.FilledPrice, sell.FilledPrice)

	// same price in and out: the ledger must return to the exact start
	account, err := b.GetAccount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 100000.0, account.Cash)

	positions, err = b.GetPositions(ctx)
	assert.NoError(t, err)
	assert.Empty(t, positions)
}

func TestBuyRejectsInsufficientCash(t *testing.T) {
	ctx := context.Background()
	b := New(10)

	_, err := b.PlaceOrder(ctx, "AAPL", 1000, types.ActionBuy)
	assert.ErrorContains(t, err, "insufficient cash")
}

func TestSellRejectsMissingShares(t *testing.T) {
	ctx := context.Background()
	b := New(100000)

	_, err := b.PlaceOrder(ctx, "AAPL", 1, types.ActionSell)
	assert.ErrorContains(t, err, "insufficient shares")
}

func TestLiquidateClosesWholePosition(t *testing.T) {
	ctx := context.Background()
	b := New(100000)

	_, err := b.PlaceOrder(ctx, "MSFT", 7, types.ActionBuy)
	assert.NoError(t, err)

	order, err := b.Liquidate(ctx, "MSFT")
	assert.NoError(t, err)
	assert.Equal(t, 7, order.Qty)
	assert.Equal(t, types.ActionSell, order.Side)

	positions, err := b.GetPositions(ctx)
	assert.NoError(t, err)
	assert.Empty(t, positions)

	_, err = b.Liquidate(ctx, "MSFT")
	assert.ErrorContains(t, err, "no position")
}

func TestRecentPricesDeterministic(t *testing.T) {
	ctx := context.Background()

	a, err := New(0).RecentPrices(ctx, "AAPL", 30)
	assert.NoError(t, err)
	b, err := New(0).RecentPrices(ctx, "AAPL", 30)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 30)

	other, err := New(0).RecentPrices(ctx, "MSFT", 30)
	assert.NoError(t, err)
	assert.NotEqual(t, a, other)

	for _, p := range a {
		assert.Greater(t, p, 0.0)
	}
}

func TestAdvanceShiftsPrices(t *testing.T) {
	ctx := context.Background()
	b := New(0)

	before, err := b.RecentPrices(ctx, "AAPL", 5)
	assert.NoError(t, err)

	b.Advance()
	after, err := b.RecentPrices(ctx, "AAPL", 5)
	assert.NoError(t, err)

	// the walk shifted by one step
	assert.Equal(t, before[1:], after[:4])
}

func TestMarketAlwaysOpen(t *testing.T) {
	open, err := New(0).IsMarketOpen(context.Background())
	assert.NoError(t, err)
	assert.True(t, open)
}
