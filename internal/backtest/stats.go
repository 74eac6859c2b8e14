package backtest

import (
	"math"

	"tierbot/internal/position"
)

// Stats 汇总一次回测的交易统计；亏损含 pnl == 0 的交易。
type Stats struct {
	TotalTrades       int            `json:"total_trades" yaml:"total_trades"`
	Wins              int            `json:"wins" yaml:"wins"`
	Losses            int            `json:"losses" yaml:"losses"`
	WinRate           float64        `json:"win_rate" yaml:"win_rate"`
	TotalPnL          float64        `json:"total_pnl" yaml:"total_pnl"`
	AvgPnL            float64        `json:"avg_pnl" yaml:"avg_pnl"`
	AvgWin            float64        `json:"avg_win" yaml:"avg_win"`
	AvgLoss           float64        `json:"avg_loss" yaml:"avg_loss"`
	Sharpe            float64        `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	MaxDrawdown       float64        `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownPct    float64        `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	ProfitFactor      float64        `json:"profit_factor" yaml:"profit_factor"`
	AvgHoldingSeconds float64        `json:"avg_holding_seconds" yaml:"avg_holding_seconds"`
	ExitReasons       map[string]int `json:"exit_reasons" yaml:"exit_reasons"`
	BestTrade         float64        `json:"best_trade" yaml:"best_trade"`
	WorstTrade        float64        `json:"worst_trade" yaml:"worst_trade"`
}

// ComputeStats: Sharpe is mean/std·√252 over per-trade pnl with the
// population std; drawdown is measured against the running maximum of the
// cumulative pnl and reported as a non-positive number.
func ComputeStats(trades []position.Trade) Stats {
	st := Stats{ExitReasons: map[string]int{}}
	if len(trades) == 0 {
		return st
	}
	st.TotalTrades = len(trades)
	st.BestTrade = math.Inf(-1)
	st.WorstTrade = math.Inf(1)

	var (
		grossWin, grossLoss float64
		holding             float64
		cum, runMax         float64
		peak                = math.Inf(-1)
		pnls                = make([]float64, 0, len(trades))
	)
	for i, t := range trades {
		pnls = append(pnls, t.PnL)
		st.TotalPnL += t.PnL
		if t.Win() {
			st.Wins++
			grossWin += t.PnL
		} else {
			st.Losses++
			grossLoss += t.PnL
		}
		st.BestTrade = math.Max(st.BestTrade, t.PnL)
		st.WorstTrade = math.Min(st.WorstTrade, t.PnL)
		st.ExitReasons[t.Reason.String()]++
		holding += t.Holding.Seconds()

		cum += t.PnL
		if i == 0 || cum > runMax {
			runMax = cum
		}
		peak = math.Max(peak, runMax)
		st.MaxDrawdown = math.Min(st.MaxDrawdown, cum-runMax)
	}

	n := float64(st.TotalTrades)
	st.WinRate = float64(st.Wins) / n
	st.AvgPnL = st.TotalPnL / n
	st.AvgHoldingSeconds = holding / n
	if st.Wins > 0 {
		st.AvgWin = grossWin / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLoss = grossLoss / float64(st.Losses)
	}
	st.Sharpe = sharpeRatio(pnls)
	if peak > 0 {
		st.MaxDrawdownPct = st.MaxDrawdown / peak * 100
	}

	denom := 1.0
	if st.Losses > 0 {
		denom = math.Abs(grossLoss)
	}
	if denom > 0 {
		st.ProfitFactor = grossWin / denom
	}
	return st
}

func sharpeRatio(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))
	var ss float64
	for _, p := range pnls {
		ss += (p - mean) * (p - mean)
	}
	std := math.Sqrt(ss / float64(len(pnls)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
