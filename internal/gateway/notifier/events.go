package notifier

import (
	"fmt"
	"time"

	"tierbot/internal/position"
	"tierbot/internal/risk"
)

// EntryMessage 开仓通知，zscore 为执行层 WOBI 的 z 值。
func EntryMessage(p position.Position, zscore float64) Message {
	ind := p.Indicators
	return Message{
		Icon:  "🟢",
		Title: fmt.Sprintf("ENTRY %s %s", p.Side, p.Symbol),
		Sections: []Section{
			{Title: "Order", Lines: []string{
				fmt.Sprintf("price: %.8g", p.EntryPrice),
				fmt.Sprintf("amount: %.8g", p.Amount),
				fmt.Sprintf("cost: %.2f", p.Cost()),
				fmt.Sprintf("score: %.3f", p.SignalScore),
			}},
			{Title: "Indicators", Lines: []string{
				fmt.Sprintf("wobi z: %.2f", zscore),
				optional("rsi", ind.RSI, ind.HasRSI),
				optional("macd", ind.MACD, ind.HasMACD),
				optional("bb position", ind.BBPosition, ind.HasBB),
				optional("stoch k", ind.StochK, ind.HasStoch),
			}},
		},
		At: p.EntryTime,
	}
}

func ExitMessage(t position.Trade) Message {
	icon := "🔴"
	if t.Win() {
		icon = "✅"
	}
	return Message{
		Icon:  icon,
		Title: fmt.Sprintf("EXIT %s %s [%s]", t.Side, t.Symbol, t.Reason),
		Sections: []Section{
			{Lines: []string{
				fmt.Sprintf("pnl: %+.2f", t.PnL),
				fmt.Sprintf("return: %+.3f%%", t.PnLRate()*100),
				fmt.Sprintf("hold: %s", t.Holding.Round(time.Second)),
				fmt.Sprintf("price: %.8g -> %.8g", t.EntryPrice, t.ExitPrice),
			}},
		},
		At: t.ExitTime,
	}
}

func DailyReportMessage(s risk.DailyStats, at time.Time) Message {
	msg := Message{
		Icon:  "📊",
		Title: "Daily Report " + s.Date,
		Sections: []Section{
			{Title: "PnL", Lines: []string{
				fmt.Sprintf("pnl: %+.2f", s.PnL),
				fmt.Sprintf("peak: %+.2f", s.PeakPnL),
				fmt.Sprintf("drawdown: %.2f", s.Drawdown),
			}},
			{Title: "Trades", Lines: []string{
				fmt.Sprintf("count: %d", s.Trades),
				fmt.Sprintf("win rate: %.1f%% (%dW/%dL)", s.WinRate*100, s.Wins, s.Losses),
				fmt.Sprintf("consecutive losses: %d", s.ConsecutiveLosses),
			}},
		},
		At: at,
	}
	if s.EmergencyStop {
		msg.Footer = "emergency stop active: " + s.StopReason
	}
	return msg
}

func EmergencyMessage(reason string, at time.Time) Message {
	return Message{
		Icon:   "🚨",
		Title:  "EMERGENCY STOP",
		Footer: reason,
		At:     at,
	}
}

func optional(name string, v float64, ok bool) string {
	if !ok {
		return name + ": n/a"
	}
	return fmt.Sprintf("%s: %.4g", name, v)
}
