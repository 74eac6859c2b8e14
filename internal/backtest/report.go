package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tierbot/internal/analysis/visual"
	"tierbot/internal/logger"
	"tierbot/internal/position"
)

// ReportInput maps a run onto the chart model.
func ReportInput(res *Result) visual.ReportInput {
	in := visual.ReportInput{
		Symbol: res.Symbol,
		Subtitle: fmt.Sprintf("trades %d | win %.1f%% | pnl %.0f | sharpe %.2f | mdd %.0f",
			res.Stats.TotalTrades, res.Stats.WinRate*100, res.Stats.TotalPnL, res.Stats.Sharpe, res.Stats.MaxDrawdown),
		Prices: make([]visual.Point, len(res.Prices)),
		Marks:  make([]visual.Mark, len(res.Markers)),
	}
	for i, p := range res.Prices {
		in.Prices[i] = visual.Point{Time: p.Time, Value: p.Price}
	}
	for i, m := range res.Markers {
		in.Marks[i] = visual.Mark{Time: m.Time, Price: m.Price, Entry: m.Entry, Label: m.Reason}
	}
	var cum float64
	for _, t := range res.Trades {
		cum += t.PnL
		in.Equity = append(in.Equity, visual.Point{Time: t.ExitTime, Value: cum})
	}
	return in
}

// StoredReportInput rebuilds a chart from a persisted run. The price line
// only has the entry and exit fills since ticks are not stored.
func StoredReportInput(rec RunRecord, trades []position.Trade) visual.ReportInput {
	res := &Result{RunID: rec.ID, Symbol: rec.Symbol, Stats: rec.Stats, Trades: trades}
	for _, t := range trades {
		res.Prices = append(res.Prices,
			PricePoint{Time: t.EntryTime, Price: t.EntryPrice},
			PricePoint{Time: t.ExitTime, Price: t.ExitPrice})
		res.Markers = append(res.Markers,
			Marker{Time: t.EntryTime, Price: t.EntryPrice, Entry: true},
			Marker{Time: t.ExitTime, Price: t.ExitPrice, Reason: t.Reason.String()})
	}
	return ReportInput(res)
}

// WriteReport writes <dir>/<symbol>_<run>.html and, when png is set, a
// screenshot next to it. A missing headless browser only skips the PNG.
func WriteReport(ctx context.Context, dir string, res *Result, png bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	in := ReportInput(res)
	html, err := visual.RenderHTML(in)
	if err != nil {
		return "", err
	}
	base := filepath.Join(dir, strings.ReplaceAll(res.Symbol, "/", "_")+"_"+res.RunID[:8])
	if err := os.WriteFile(base+".html", html, 0o644); err != nil {
		return "", err
	}
	if png {
		img, err := visual.RenderPNG(ctx, in)
		if err != nil {
			logger.Warnf("backtest: png report skipped: %v", err)
		} else if err := os.WriteFile(base+".png", img.Bytes, 0o644); err != nil {
			return "", err
		}
	}
	return base + ".html", nil
}
