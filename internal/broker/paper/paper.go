// Package paper is an in-memory broker for dry runs and tests. It fills
// every order instantly at the latest synthetic price and keeps the ledger
// in decimals so repeated fills never drift.
package paper

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"autopilot/internal/broker"
	"autopilot/internal/types"
)

type position struct {
	qty       int
	costBasis decimal.Decimal
}

// Broker simulates fills against a deterministic per-symbol price walk.
// Safe for concurrent use.
type Broker struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*position
	tick      int
}

func New(startingCash float64) *Broker {
	return &Broker{
		cash:      decimal.NewFromFloat(startingCash),
		positions: map[string]*position{},
	}
}

func (b *Broker) GetAccount(ctx context.Context) (types.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value := b.cash
	for symbol, pos := range b.positions {
		price := decimal.NewFromFloat(b.priceAt(symbol, b.tick))
		value = value.Add(price.Mul(decimal.NewFromInt(int64(pos.qty))))
	}
	return types.Account{
		Cash:           b.cash.InexactFloat64(),
		PortfolioValue: value.InexactFloat64(),
	}, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Position, 0, len(b.positions))
	for symbol, pos := range b.positions {
		price := decimal.NewFromFloat(b.priceAt(symbol, b.tick))
		marketValue := price.Mul(decimal.NewFromInt(int64(pos.qty)))
		plPct := 0.0
		if !pos.costBasis.IsZero() {
			plPct = marketValue.Sub(pos.costBasis).Div(pos.costBasis).InexactFloat64() * 100
		}
		out = append(out, types.Position{
			Symbol:          symbol,
			Qty:             pos.qty,
			MarketValue:     marketValue.InexactFloat64(),
			UnrealizedPLPct: plPct,
			CurrentPrice:    price.InexactFloat64(),
		})
	}
	return out, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, symbol string, qty int, side types.Action) (broker.Order, error) {
	if qty <= 0 {
		return broker.Order{}, fmt.Errorf("paper order %s: quantity must be positive", symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	price := decimal.NewFromFloat(b.priceAt(symbol, b.tick))
	cost := price.Mul(decimal.NewFromInt(int64(qty)))

	switch side {
	case types.ActionBuy:
		if cost.GreaterThan(b.cash) {
			return broker.Order{}, fmt.Errorf("paper order %s: insufficient cash", symbol)
		}
		b.cash = b.cash.Sub(cost)
		pos := b.positions[symbol]
		if pos == nil {
			pos = &position{}
			b.positions[symbol] = pos
		}
		pos.qty += qty
		pos.costBasis = pos.costBasis.Add(cost)
	case types.ActionSell:
		pos := b.positions[symbol]
		if pos == nil || pos.qty < qty {
			return broker.Order{}, fmt.Errorf("paper order %s: insufficient shares", symbol)
		}
		soldFraction := decimal.NewFromInt(int64(qty)).Div(decimal.NewFromInt(int64(pos.qty)))
		pos.costBasis = pos.costBasis.Sub(pos.costBasis.Mul(soldFraction))
		pos.qty -= qty
		b.cash = b.cash.Add(cost)
		if pos.qty == 0 {
			delete(b.positions, symbol)
		}
	default:
		return broker.Order{}, fmt.Errorf("paper order %s: unsupported side %q", symbol, side)
	}

	return broker.Order{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		FilledPrice: price.InexactFloat64(),
		Status:      "filled",
	}, nil
}

func (b *Broker) Liquidate(ctx context.Context, symbol string) (broker.Order, error) {
	b.mu.Lock()
	pos := b.positions[symbol]
	var qty int
	if pos != nil {
		qty = pos.qty
	}
	b.mu.Unlock()

	if qty == 0 {
		return broker.Order{}, fmt.Errorf("paper liquidate %s: no position", symbol)
	}
	return b.PlaceOrder(ctx, symbol, qty, types.ActionSell)
}

// IsMarketOpen always reports open; paper runs are not gated by the clock.
func (b *Broker) IsMarketOpen(ctx context.Context) (bool, error) {
	return true, nil
}

// RecentPrices replays the last n steps of the symbol's walk, oldest first.
func (b *Broker) RecentPrices(ctx context.Context, symbol string, n int) ([]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = b.priceAt(symbol, b.tick-n+1+i)
	}
	return prices, nil
}

// Advance moves the synthetic clock forward one step, shifting every price.
func (b *Broker) Advance() {
	b.mu.Lock()
	b.tick++
	b.mu.Unlock()
}

// priceAt derives a price from the symbol hash and step index alone, so any
// two brokers agree on the full history.
func (b *Broker) priceAt(symbol string, step int) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := float64(h.Sum32()%400) + 20
	wave := math.Sin(float64(step)*0.35+float64(h.Sum32()%7)) * seed * 0.02
	price := seed + wave
	return math.Round(price*100) / 100
}
