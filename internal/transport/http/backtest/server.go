package backtesthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"tierbot/internal/analysis/visual"
	"tierbot/internal/backtest"
	"tierbot/internal/position"

	"github.com/gin-gonic/gin"
)

// RunSource 为回测结果的只读视图，由 backtest.Store 实现。
type RunSource interface {
	ListRuns(ctx context.Context, limit int) ([]backtest.RunRecord, error)
	GetRun(ctx context.Context, id string) (backtest.RunRecord, error)
	Trades(ctx context.Context, runID string) ([]position.Trade, error)
}

// Router 暴露已保存的回测运行、成交与图表。
type Router struct {
	runs RunSource
}

func NewRouter(runs RunSource) *Router {
	return &Router{runs: runs}
}

// Register 将路由挂载到 /api/backtest 分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil || r.runs == nil {
		return
	}
	group.GET("/runs", r.handleRunList)
	group.GET("/runs/:id", r.handleRunDetail)
	group.GET("/runs/:id/trades", r.handleRunTrades)
	group.GET("/runs/:id/chart", r.handleRunChart)
}

func (r *Router) handleRunList(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	if limit > 500 {
		limit = 500
	}
	runs, err := r.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) loadRun(c *gin.Context) (backtest.RunRecord, bool) {
	rec, err := r.runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, backtest.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return rec, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return rec, false
	}
	return rec, true
}

func (r *Router) handleRunDetail(c *gin.Context) {
	rec, ok := r.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": rec})
}

type tradeJSON struct {
	ID         string  `json:"id"`
	Side       string  `json:"side"`
	EntryTime  int64   `json:"entry_ts"`
	ExitTime   int64   `json:"exit_ts"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Amount     float64 `json:"amount"`
	PnL        float64 `json:"pnl"`
	Reason     string  `json:"reason"`
}

func (r *Router) handleRunTrades(c *gin.Context) {
	rec, ok := r.loadRun(c)
	if !ok {
		return
	}
	trades, err := r.runs.Trades(c.Request.Context(), rec.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeJSON{
			ID:         t.ID,
			Side:       t.Side.String(),
			EntryTime:  t.EntryTime.UnixMilli(),
			ExitTime:   t.ExitTime.UnixMilli(),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Amount:     t.Amount,
			PnL:        t.PnL,
			Reason:     t.Reason.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"run_id": rec.ID, "trades": out})
}

func (r *Router) handleRunChart(c *gin.Context) {
	rec, ok := r.loadRun(c)
	if !ok {
		return
	}
	trades, err := r.runs.Trades(c.Request.Context(), rec.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(trades) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no trades"})
		return
	}
	html, err := visual.RenderHTML(backtest.StoredReportInput(rec, trades))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
