// Package exchange defines the venue abstraction the live bot trades
// through: order book and ticker snapshots in, market orders out.
package exchange

import (
	"context"

	"tierbot/internal/market"
)

// MarketData fetches on-demand snapshots.
type MarketData interface {
	OrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error)
	Ticker(ctx context.Context, symbol string) (market.Ticker, error)
}

// Executor places market orders. A buy spends quote currency, a sell
// disposes of base currency.
type Executor interface {
	MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (Fill, error)
	MarketSell(ctx context.Context, symbol string, baseAmount float64) (Fill, error)
}

type Exchange interface {
	MarketData
	Executor
	Name() string
}

// Fill 为市价单的成交汇总；Fee 以报价币计。
type Fill struct {
	OrderID  string
	AvgPrice float64
	Amount   float64
	Fee      float64
}

// Notional is AvgPrice*Amount.
func (f Fill) Notional() float64 {
	return f.AvgPrice * f.Amount
}
