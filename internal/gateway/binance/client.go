// Package binance implements the spot exchange gateway on top of the
// go-binance SDK.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdk "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"tierbot/internal/gateway/exchange"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/pkg/symbol"
)

// Client 基于 go-binance 现货接口实现 exchange.Exchange。
type Client struct {
	cfg    Config
	client *sdk.Client
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	if final.Testnet {
		sdk.UseTestnet = true
	}
	c := sdk.NewClient(final.APIKey, final.APISecret)
	if final.BaseURL != "" {
		c.BaseURL = final.BaseURL
	}
	c.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Client{cfg: final, client: c}
}

func (c *Client) Name() string { return "binance" }

func (c *Client) OrderBook(ctx context.Context, sym string, depth int) (market.OrderBook, error) {
	if depth <= 0 {
		depth = 10
	}
	res, err := c.client.NewDepthService().Symbol(symbol.Exchange(sym)).Limit(depth).Do(ctx)
	if err != nil {
		return market.OrderBook{}, fmt.Errorf("depth %s: %w", sym, err)
	}
	book := market.OrderBook{
		Symbol: sym,
		Time:   time.Now(),
		Bids:   make([]market.Level, 0, len(res.Bids)),
		Asks:   make([]market.Level, 0, len(res.Asks)),
	}
	for _, b := range res.Bids {
		book.Bids = append(book.Bids, market.Level{Price: parseFloat(b.Price), Qty: parseFloat(b.Quantity)})
	}
	for _, a := range res.Asks {
		book.Asks = append(book.Asks, market.Level{Price: parseFloat(a.Price), Qty: parseFloat(a.Quantity)})
	}
	if err := book.Validate(); err != nil {
		return market.OrderBook{}, err
	}
	return book, nil
}

func (c *Client) Ticker(ctx context.Context, sym string) (market.Ticker, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(symbol.Exchange(sym)).Do(ctx)
	if err != nil {
		return market.Ticker{}, fmt.Errorf("ticker %s: %w", sym, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return market.Ticker{}, fmt.Errorf("ticker %s: empty response", sym)
	}
	st := stats[0]
	t := market.Ticker{
		Symbol:      sym,
		Last:        parseFloat(st.LastPrice),
		QuoteVolume: parseFloat(st.QuoteVolume),
		Time:        time.Now(),
	}
	if st.CloseTime > 0 {
		t.Time = time.UnixMilli(st.CloseTime)
	}
	return t, nil
}

// MarketBuy spends quoteAmount of the quote currency.
func (c *Client) MarketBuy(ctx context.Context, sym string, quoteAmount float64) (exchange.Fill, error) {
	if quoteAmount <= 0 {
		return exchange.Fill{}, fmt.Errorf("buy %s: quote amount must be > 0", sym)
	}
	res, err := c.client.NewCreateOrderService().
		Symbol(symbol.Exchange(sym)).
		Side(sdk.SideTypeBuy).
		Type(sdk.OrderTypeMarket).
		QuoteOrderQty(decimal.NewFromFloat(quoteAmount).Round(2).String()).
		Do(ctx)
	if err != nil {
		return exchange.Fill{}, fmt.Errorf("buy %s: %w", sym, err)
	}
	return fillFromOrder(sym, res), nil
}

// MarketSell disposes of baseAmount, truncated to AmountPrecision.
func (c *Client) MarketSell(ctx context.Context, sym string, baseAmount float64) (exchange.Fill, error) {
	qty := decimal.NewFromFloat(baseAmount).Truncate(c.cfg.AmountPrecision)
	if !qty.IsPositive() {
		return exchange.Fill{}, fmt.Errorf("sell %s: amount %.8f below precision", sym, baseAmount)
	}
	res, err := c.client.NewCreateOrderService().
		Symbol(symbol.Exchange(sym)).
		Side(sdk.SideTypeSell).
		Type(sdk.OrderTypeMarket).
		Quantity(qty.String()).
		Do(ctx)
	if err != nil {
		return exchange.Fill{}, fmt.Errorf("sell %s: %w", sym, err)
	}
	return fillFromOrder(sym, res), nil
}

// fillFromOrder aggregates the per-trade fills into a volume-weighted price.
// Commission paid in the base asset is converted to quote at the fill price.
func fillFromOrder(sym string, res *sdk.CreateOrderResponse) exchange.Fill {
	out := exchange.Fill{OrderID: strconv.FormatInt(res.OrderID, 10)}
	quote := symbol.Quote(sym)
	var qty, notional, fee decimal.Decimal
	for _, f := range res.Fills {
		if f == nil {
			continue
		}
		p := parseDecimal(f.Price)
		q := parseDecimal(f.Quantity)
		qty = qty.Add(q)
		notional = notional.Add(p.Mul(q))
		commission := parseDecimal(f.Commission)
		if quote != "" && !strings.EqualFold(f.CommissionAsset, quote) {
			commission = commission.Mul(p)
		}
		fee = fee.Add(commission)
	}
	if qty.IsZero() {
		qty = parseDecimal(res.ExecutedQuantity)
		notional = parseDecimal(res.CummulativeQuoteQuantity)
	}
	if qty.IsPositive() {
		out.AvgPrice, _ = notional.Div(qty).Float64()
	}
	out.Amount, _ = qty.Float64()
	out.Fee, _ = fee.Float64()
	if out.Amount == 0 {
		logger.Warnf("binance: order %s for %s reported no executed quantity", out.OrderID, sym)
	}
	return out
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(s string) float64 {
	f, _ := parseDecimal(s).Float64()
	return f
}
