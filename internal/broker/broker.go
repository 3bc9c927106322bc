// Package broker abstracts the execution venue. The live implementation
// talks to Alpaca; the paper implementation keeps an in-memory ledger for
// dry runs and tests.
package broker

import (
	"context"

	"autopilot/internal/types"
)

// Order is the normalized result of a placed order.
type Order struct {
	ID          string       `json:"id"`
	Symbol      string       `json:"symbol"`
	Side        types.Action `json:"side"`
	Qty         int          `json:"qty"`
	FilledPrice float64      `json:"filled_price"`
	Status      string       `json:"status"`
}

// Broker executes orders and reports account state.
type Broker interface {
	GetAccount(ctx context.Context) (types.Account, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
	PlaceOrder(ctx context.Context, symbol string, qty int, side types.Action) (Order, error)
	Liquidate(ctx context.Context, symbol string) (Order, error)
}

// Clock reports whether the market is currently accepting orders.
type Clock interface {
	IsMarketOpen(ctx context.Context) (bool, error)
}

// MarketData serves recent closing prices, oldest first.
type MarketData interface {
	RecentPrices(ctx context.Context, symbol string, n int) ([]float64, error)
}
