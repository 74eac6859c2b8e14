package exchange

import (
	"context"

	"golang.org/x/time/rate"

	"tierbot/internal/market"
	"tierbot/internal/pkg/circuit"
)

// Guarded wraps an Exchange with a request rate limiter and a circuit
// breaker. Calls wait for a limiter token, then fail fast with
// circuit.ErrCircuitOpen while the breaker is open.
type Guarded struct {
	inner   Exchange
	limiter *rate.Limiter
	breaker *circuit.CircuitBreaker
}

func NewGuarded(inner Exchange, limiter *rate.Limiter, breaker *circuit.CircuitBreaker) *Guarded {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Guarded{inner: inner, limiter: limiter, breaker: breaker}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Breaker() *circuit.CircuitBreaker { return g.breaker }

func (g *Guarded) call(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	if g.breaker == nil {
		return fn()
	}
	return g.breaker.Do(fn)
}

func (g *Guarded) OrderBook(ctx context.Context, symbol string, depth int) (book market.OrderBook, err error) {
	err = g.call(ctx, func() error {
		book, err = g.inner.OrderBook(ctx, symbol, depth)
		return err
	})
	return book, err
}

func (g *Guarded) Ticker(ctx context.Context, symbol string) (t market.Ticker, err error) {
	err = g.call(ctx, func() error {
		t, err = g.inner.Ticker(ctx, symbol)
		return err
	})
	return t, err
}

func (g *Guarded) MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (f Fill, err error) {
	err = g.call(ctx, func() error {
		f, err = g.inner.MarketBuy(ctx, symbol, quoteAmount)
		return err
	})
	return f, err
}

func (g *Guarded) MarketSell(ctx context.Context, symbol string, baseAmount float64) (f Fill, err error) {
	err = g.call(ctx, func() error {
		f, err = g.inner.MarketSell(ctx, symbol, baseAmount)
		return err
	})
	return f, err
}
