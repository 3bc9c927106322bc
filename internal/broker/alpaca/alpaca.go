// Package alpacabroker adapts the Alpaca trading and market-data APIs to the
// broker interfaces. Paper trading is just a base-URL switch.
package alpacabroker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"autopilot/internal/broker"
	"autopilot/internal/types"
)

const PaperBaseURL = "https://paper-api.alpaca.markets"

type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// Client wraps the trading and market-data clients behind the broker
// interfaces. The underlying SDK manages its own HTTP timeouts, so the
// context parameters gate only our callers.
type Client struct {
	trading *alpaca.Client
	data    *marketdata.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PaperBaseURL
	}
	return &Client{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		}),
	}
}

func (c *Client) GetAccount(ctx context.Context) (types.Account, error) {
	acct, err := c.trading.GetAccount()
	if err != nil {
		return types.Account{}, fmt.Errorf("alpaca account: %w", err)
	}
	return types.Account{
		Cash:           acct.Cash.InexactFloat64(),
		PortfolioValue: acct.PortfolioValue.InexactFloat64(),
	}, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]types.Position, error) {
	positions, err := c.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca positions: %w", err)
	}
	out := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, types.Position{
			Symbol:          p.Symbol,
			Qty:             int(p.Qty.IntPart()),
			MarketValue:     derefFloat(p.MarketValue),
			UnrealizedPLPct: derefFloat(p.UnrealizedPLPC) * 100,
			CurrentPrice:    derefFloat(p.CurrentPrice),
		})
	}
	return out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, symbol string, qty int, side types.Action) (broker.Order, error) {
	alpacaSide := alpaca.Buy
	if side == types.ActionSell {
		alpacaSide = alpaca.Sell
	}
	decQty := decimal.NewFromInt(int64(qty))
	order, err := c.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &decQty,
		Side:        alpacaSide,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return broker.Order{}, fmt.Errorf("alpaca order %s %s: %w", side, symbol, err)
	}
	return broker.Order{
		ID:          order.ID,
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		FilledPrice: derefFloat(order.FilledAvgPrice),
		Status:      string(order.Status),
	}, nil
}

// Liquidate closes the entire position in one market order.
func (c *Client) Liquidate(ctx context.Context, symbol string) (broker.Order, error) {
	pos, err := c.trading.GetPosition(symbol)
	if err != nil {
		return broker.Order{}, fmt.Errorf("alpaca position %s: %w", symbol, err)
	}
	qty := pos.Qty
	side := types.ActionSell
	if qty.LessThan(decimal.Zero) {
		side = types.ActionBuy
		qty = qty.Abs()
	}
	return c.PlaceOrder(ctx, symbol, int(qty.IntPart()), side)
}

// IsMarketOpen asks the exchange clock. Callers fall back to a local
// schedule when this errors.
func (c *Client) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := c.trading.GetClock()
	if err != nil {
		return false, fmt.Errorf("alpaca clock: %w", err)
	}
	return clock.IsOpen, nil
}

// RecentPrices returns up to n daily closes, oldest first.
func (c *Client) RecentPrices(ctx context.Context, symbol string, n int) ([]float64, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -n*2)
	bars, err := c.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Start:      start,
		End:        end,
		TotalLimit: n,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	prices := make([]float64, 0, len(bars))
	for _, bar := range bars {
		prices = append(prices, bar.Close)
	}
	return prices, nil
}

func derefFloat(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}
