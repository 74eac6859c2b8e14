package livehttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"tierbot/internal/logger"
	"tierbot/internal/trader"

	"github.com/gin-gonic/gin"
)

// Controller 为 HTTP 层可见的机器人操作，由 trader.Bot 实现。
type Controller interface {
	Status() trader.Status
	OpenPositions() []trader.PositionView
	RecentTrades(ctx context.Context, limit int) ([]trader.TradeView, error)
	EmergencyStop(ctx context.Context, reason string) error
	Resume(ctx context.Context)
}

// Router 暴露状态查询与紧急停止/恢复接口。
type Router struct {
	bot Controller
}

func NewRouter(bot Controller) *Router {
	return &Router{bot: bot}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/positions", r.handlePositions)
	group.GET("/trades", r.handleTrades)
	group.POST("/stop", r.handleStop)
	group.POST("/start", r.handleStart)
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.bot.Status())
}

func (r *Router) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": r.bot.OpenPositions()})
}

func (r *Router) handleTrades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	if limit > 500 {
		limit = 500
	}
	trades, err := r.bot.RecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (r *Router) handleStop(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "HTTP request"
	}
	logger.Warnf("HTTP emergency stop from %s: %s", c.ClientIP(), reason)
	if err := r.bot.EmergencyStop(c.Request.Context(), reason); err != nil {
		c.JSON(http.StatusMultiStatus, gin.H{"status": trader.StateEmergency, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": trader.StateEmergency})
}

func (r *Router) handleStart(c *gin.Context) {
	r.bot.Resume(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": r.bot.Status().State})
}
