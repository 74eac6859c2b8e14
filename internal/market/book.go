package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyBook   = errors.New("order book has no levels")
	ErrCrossedBook = errors.New("order book is crossed")
)

// Level 为盘口一档（价格、数量）。
type Level struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// OrderBook 的买卖档位均按最优到最差排序。
type OrderBook struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Bids   []Level   `json:"bids"`
	Asks   []Level   `json:"asks"`
}

// Ticker 为最新成交价和 24h 报价币成交额。
type Ticker struct {
	Symbol      string    `json:"symbol"`
	Last        float64   `json:"last"`
	QuoteVolume float64   `json:"quote_volume"`
	Time        time.Time `json:"time"`
}

// Tick is the unit fed through the decision pipeline, both live and in replay.
type Tick struct {
	Time   time.Time `json:"time"`
	Symbol string    `json:"symbol"`
	Book   OrderBook `json:"book"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

func (b OrderBook) Validate() error {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return fmt.Errorf("%s: %w", b.Symbol, ErrEmptyBook)
	}
	if b.Bids[0].Price >= b.Asks[0].Price {
		return fmt.Errorf("%s: bid %.8f >= ask %.8f: %w", b.Symbol, b.Bids[0].Price, b.Asks[0].Price, ErrCrossedBook)
	}
	return nil
}

func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

func (b OrderBook) MidPrice() float64 {
	return (b.BestBid() + b.BestAsk()) / 2
}

// SpreadRate is (ask0-bid0)/bid0.
func (b OrderBook) SpreadRate() float64 {
	bid := b.BestBid()
	if bid <= 0 {
		return 0
	}
	return (b.BestAsk() - bid) / bid
}

// SpreadBps is the spread over the mid price in basis points.
func (b OrderBook) SpreadBps() float64 {
	mid := b.MidPrice()
	if mid <= 0 {
		return 0
	}
	return (b.BestAsk() - b.BestBid()) / mid * 1e4
}

// WOBI 为前 n 档按 价格×数量 加权的买卖不平衡度，取值 [-1, 1]。
func (b OrderBook) WOBI(n int) float64 {
	bid := notional(b.Bids, n)
	ask := notional(b.Asks, n)
	total := bid + ask
	if total == 0 {
		return 0
	}
	return (bid - ask) / total
}

// DepthRatio is the top-n bid quantity over the top-n ask quantity; 1 when
// the ask side is empty.
func (b OrderBook) DepthRatio(n int) float64 {
	ask := quantity(b.Asks, n)
	if ask == 0 {
		return 1.0
	}
	return quantity(b.Bids, n) / ask
}

// HasLiquidity reports whether the top ask levels can absorb factor×amount of
// quote currency.
func (b OrderBook) HasLiquidity(amount float64, levels int, factor float64) bool {
	return notional(b.Asks, levels) >= amount*factor
}

func notional(levels []Level, n int) float64 {
	var sum float64
	for i := 0; i < n && i < len(levels); i++ {
		sum += levels[i].Price * levels[i].Qty
	}
	return sum
}

func quantity(levels []Level, n int) float64 {
	var sum float64
	for i := 0; i < n && i < len(levels); i++ {
		sum += levels[i].Qty
	}
	return sum
}
