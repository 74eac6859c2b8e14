package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tierbot/internal/gateway/exchange"
	"tierbot/internal/gateway/notifier"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/position"
	"tierbot/internal/scheduler"
	"tierbot/internal/signal"
	"tierbot/internal/store/model"
)

// symbolLoop 每个交易对一个：已有持仓或紧急停止时跳过；行情错误后退避 ErrorBackoff。
func (b *Bot) symbolLoop(ctx context.Context, symbol string) error {
	logger.Infof("trader: feed started %s", symbol)
	for {
		wait := b.cfg.LoopInterval
		if err := b.step(ctx, symbol); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf("trader: feed %s: %v", symbol, err)
			wait = b.cfg.ErrorBackoff
		}
		if !scheduler.Sleep(ctx, wait) {
			return nil
		}
	}
}

func (b *Bot) step(ctx context.Context, symbol string) error {
	if stopped, _ := b.Risk.Stopped(); stopped {
		return nil
	}
	if b.Positions.HasSymbol(symbol) {
		return nil
	}
	book, err := b.Market.OrderBook(ctx, symbol, b.cfg.Depth)
	if err != nil {
		return fmt.Errorf("order book: %w", err)
	}
	tk, err := b.Market.Ticker(ctx, symbol)
	if err != nil {
		return fmt.Errorf("ticker: %w", err)
	}
	sig, ok := b.Decider.Evaluate(symbol, book, tk.Last, tk.QuoteVolume)
	if !ok {
		return nil
	}
	b.Metrics.Signals.WithLabelValues(symbol, sig.Direction.String()).Inc()
	if sig.Direction != signal.Long {
		// 现货账户只做多
		logger.Debugf("trader: %s %s signal ignored on spot", symbol, sig.Direction)
		b.reject("short_unsupported")
		return nil
	}
	b.TryEntry(ctx, symbol, sig, book)
	return nil
}

func (b *Bot) reject(gate string) {
	b.Metrics.Rejections.WithLabelValues(gate).Inc()
}

// TryEntry runs the pre-trade gates in order (risk, liquidity, spread,
// filter), buys with the entry retry policy and registers the position.
func (b *Bot) TryEntry(ctx context.Context, symbol string, sig signal.ExecutionSignal, book market.OrderBook) (position.Position, bool) {
	amount := sig.PositionSize
	if amount <= 0 {
		amount = b.cfg.TradeAmount
	}
	if ok, reason := b.Risk.CanEnter(b.Positions.Count(), amount); !ok {
		logger.Warnf("trader: %s | %s", symbol, reason)
		b.reject("risk")
		return position.Position{}, false
	}
	if !book.HasLiquidity(amount, b.cfg.LiquidityLevels, b.cfg.LiquidityFactor) {
		logger.Warnf("trader: %s | Insufficient liquidity for %.0f", symbol, amount)
		b.reject("liquidity")
		return position.Position{}, false
	}
	if bps := book.SpreadBps(); bps > b.cfg.MaxSpreadBps {
		logger.Warnf("trader: %s | Spread too wide: %.2fbps", symbol, bps)
		b.reject("spread")
		return position.Position{}, false
	}
	if b.Gate != nil {
		if features, ok := b.Decider.Features(symbol); ok {
			allow, conf, err := b.Gate.Allow(ctx, features)
			if err != nil {
				logger.Warnf("trader: %s | filter unavailable, passing through: %v", symbol, err)
			}
			if !allow {
				logger.Infof("trader: %s | filter REJECTED confidence=%.3f", symbol, conf)
				b.reject("filter")
				return position.Position{}, false
			}
		}
	}

	var fill exchange.Fill
	err := exchange.Retry(ctx, b.cfg.EntryAttempts, b.cfg.EntryDelay, func(ctx context.Context) error {
		f, err := b.Executor.MarketBuy(ctx, symbol, amount)
		if err != nil {
			return err
		}
		fill = f
		return nil
	})
	if err != nil {
		logger.Errorf("trader: entry failed %s: %v", symbol, err)
		b.Metrics.OrderFailures.WithLabelValues(symbol, "BUY").Inc()
		b.recordEvent(ctx, model.EventEntryFailed, symbol, err.Error(), map[string]any{"quote_amount": amount})
		return position.Position{}, false
	}

	score := sig.Score
	if _, strategic, _, ok := b.Decider.LastSignals(symbol); ok {
		score = strategic.Score
	}
	p := position.Position{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        position.Long,
		EntryTime:   b.now(),
		EntryPrice:  fill.AvgPrice,
		Amount:      fill.Amount,
		EntryFee:    fill.Fee,
		SignalScore: score,
		Indicators:  b.Decider.Indicators(symbol),
		HighWater:   fill.AvgPrice,
		LowWater:    fill.AvgPrice,
	}
	if err := b.Positions.TryOpen(p); err != nil {
		// 已成交但无法登记：需要人工处理
		logger.Errorf("trader: filled %s order %s but position rejected: %v", symbol, fill.OrderID, err)
		b.notify(ctx, notifier.EmergencyMessage(fmt.Sprintf("Untracked fill on %s (order %s): %v", symbol, fill.OrderID, err), b.now()))
		return position.Position{}, false
	}
	logger.Infof("trader: ENTRY %s %s price=%.8g amount=%.8g score=%.3f", p.Symbol, p.Side, p.EntryPrice, p.Amount, p.SignalScore)
	b.Metrics.Entries.WithLabelValues(symbol).Inc()
	b.syncGauges()
	b.notify(ctx, notifier.EntryMessage(p, sig.Meta("zscore")))
	return p, true
}

// exitLoop 每 ExitInterval 检查全部持仓；价格取最优买价（空头取最优卖价）。
func (b *Bot) exitLoop(ctx context.Context) error {
	logger.Infof("trader: exit loop started")
	for {
		b.checkExits(ctx)
		if !scheduler.Sleep(ctx, b.cfg.ExitInterval) {
			return nil
		}
	}
}

func (b *Bot) checkExits(ctx context.Context) {
	for _, p := range b.Positions.All() {
		if ctx.Err() != nil {
			return
		}
		if b.Positions.Closing(p.ID) {
			continue
		}
		if b.liquidate.Load() {
			_, _ = b.ExecuteExit(ctx, p, position.ExitEmergency)
			continue
		}
		book, err := b.Market.OrderBook(ctx, p.Symbol, b.cfg.Depth)
		if err != nil {
			logger.Warnf("trader: exit check %s: %v", p.Symbol, err)
			continue
		}
		price := book.BestBid()
		if p.Side == position.Short {
			price = book.BestAsk()
		}
		b.Positions.UpdateTrailingHigh(p.ID, price)
		if reason, ok := b.Positions.Evaluate(p.ID, price); ok {
			_, _ = b.ExecuteExit(ctx, p, reason)
		}
	}
}

// ExecuteExit sells with the exit retry policy. p only identifies the
// position; the amount comes from the claimed, current state. On exhaustion
// the claim is released so the next pass retries, and an emergency notice
// goes out.
func (b *Bot) ExecuteExit(ctx context.Context, p position.Position, reason position.ExitReason) (position.Trade, error) {
	p, err := b.Positions.Claim(p.ID)
	if err != nil {
		return position.Trade{}, err
	}

	var fill exchange.Fill
	err = exchange.Retry(ctx, b.cfg.ExitAttempts, b.cfg.ExitDelay, func(ctx context.Context) error {
		f, err := b.Executor.MarketSell(ctx, p.Symbol, p.Amount)
		if err != nil {
			return err
		}
		fill = f
		return nil
	})
	if err != nil {
		b.Positions.Release(p.ID)
		logger.Errorf("trader: exit failed %s (%s): %v", p.Symbol, reason, err)
		b.Metrics.OrderFailures.WithLabelValues(p.Symbol, "SELL").Inc()
		b.notify(ctx, notifier.EmergencyMessage(fmt.Sprintf("Failed to close position: %s\nManual intervention required!", p.Symbol), b.now()))
		b.recordEvent(ctx, model.EventExitFailed, p.Symbol, err.Error(), map[string]any{"position_id": p.ID, "reason": reason.String()})
		return position.Trade{}, err
	}

	trade, err := b.Positions.Close(p.ID, fill.AvgPrice, fill.Fee, reason)
	if err != nil {
		logger.Errorf("trader: sold %s but close failed: %v", p.Symbol, err)
		return trade, err
	}
	wasStopped, _ := b.Risk.Stopped()
	b.Risk.RecordTrade(trade.PnL)
	logger.Infof("trader: EXIT %s %s reason=%s pnl=%.2f hold=%s", trade.Symbol, trade.Side, trade.Reason, trade.PnL, trade.Holding.Round(time.Millisecond))

	if b.Journal != nil {
		if err := b.Journal.RecordTrade(ctx, trade); err != nil {
			logger.Warnf("trader: journal trade %s failed: %v", trade.ID, err)
		}
	}
	b.Metrics.Exits.WithLabelValues(trade.Symbol, trade.Reason.String()).Inc()
	b.syncGauges()
	b.notify(ctx, notifier.ExitMessage(trade))

	if stopped, why := b.Risk.Stopped(); stopped && !wasStopped {
		b.Decider.Cache().Reset()
		b.notify(ctx, notifier.EmergencyMessage(why, b.now()))
		b.recordEvent(ctx, model.EventEmergencyStop, "", why, nil)
	}
	return trade, nil
}

// dailyReportLoop 在每个本地零点发送前一交易日的统计并落库。
func (b *Bot) dailyReportLoop(ctx context.Context) error {
	sched := scheduler.NewDailyScheduler(b.cfg.Location, 0)
	sched.Run(ctx, func(at time.Time) {
		b.SendDailyReport(ctx, at)
	})
	return nil
}

func (b *Bot) SendDailyReport(ctx context.Context, at time.Time) {
	stats, ok := b.Risk.PreviousDay()
	if !ok {
		stats = b.Risk.DailyStats()
	}
	logger.Infof("trader: daily report %s pnl=%.2f trades=%d win_rate=%.2f", stats.Date, stats.PnL, stats.Trades, stats.WinRate)
	if b.Journal != nil {
		if err := b.Journal.SaveDailyReport(ctx, stats); err != nil {
			logger.Warnf("trader: journal daily report failed: %v", err)
		}
	}
	b.syncGauges()
	b.notify(ctx, notifier.DailyReportMessage(stats, at))
}
