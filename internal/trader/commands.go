package trader

import (
	"context"
	"fmt"
	"strings"

	"tierbot/internal/gateway/notifier"
)

// HandleCommand answers /status, /stop, /start and /positions.
func (b *Bot) HandleCommand(ctx context.Context, cmd notifier.Command) string {
	switch cmd.Name {
	case "status":
		st := b.Status()
		msg := notifier.Message{
			Icon:  "🤖",
			Title: "Status: " + st.State,
			Sections: []notifier.Section{{Lines: []string{
				fmt.Sprintf("positions: %d", len(st.Positions)),
				fmt.Sprintf("daily pnl: %+.2f", st.Daily.PnL),
				fmt.Sprintf("win rate: %.1f%%", st.Daily.WinRate*100),
				fmt.Sprintf("sharpe: %.2f", st.Sharpe),
			}}},
		}
		if st.StopReason != "" {
			msg.Footer = "stop reason: " + st.StopReason
		}
		return msg.Markdown()
	case "stop":
		reason := "User command"
		if len(cmd.Args) > 0 {
			reason = strings.Join(cmd.Args, " ")
		}
		if err := b.EmergencyStop(ctx, reason); err != nil {
			return "⚠️ Emergency stop activated, some positions failed to close: " + err.Error()
		}
		return "🛑 Emergency stop activated"
	case "start":
		b.Resume(ctx)
		return "▶️ Bot resumed"
	case "positions":
		views := b.OpenPositions()
		if len(views) == 0 {
			return "No open positions"
		}
		lines := make([]string, 0, len(views))
		for _, p := range views {
			lines = append(lines, fmt.Sprintf("%s %s @ %.8g x %.8g (%.0fs)", p.Symbol, p.Side, p.EntryPrice, p.Amount, p.HoldingSec))
		}
		msg := notifier.Message{
			Icon:     "📋",
			Title:    fmt.Sprintf("Positions (%d)", len(views)),
			Sections: []notifier.Section{{Lines: lines}},
		}
		return msg.Markdown()
	default:
		return "Commands: /status /positions /stop [reason] /start"
	}
}
