package model

import (
	"gorm.io/datatypes"
)

// TradeModel maps to 'trades'. 时间戳统一为毫秒。
type TradeModel struct {
	ID          int64          `gorm:"column:id;primaryKey"`
	TradeID     string         `gorm:"column:trade_id;uniqueIndex"`
	Symbol      string         `gorm:"column:symbol;index"`
	Side        string         `gorm:"column:side"`
	EntryTime   int64          `gorm:"column:entry_time"`
	ExitTime    int64          `gorm:"column:exit_time;index"`
	EntryPrice  float64        `gorm:"column:entry_price"`
	ExitPrice   float64        `gorm:"column:exit_price"`
	Amount      float64        `gorm:"column:amount"`
	EntryFee    float64        `gorm:"column:entry_fee"`
	ExitFee     float64        `gorm:"column:exit_fee"`
	PnL         float64        `gorm:"column:pnl"`
	PnLRate     float64        `gorm:"column:pnl_rate"`
	Reason      string         `gorm:"column:exit_reason"`
	HoldingMs   int64          `gorm:"column:holding_ms"`
	SignalScore float64        `gorm:"column:signal_score"`
	Indicators  datatypes.JSON `gorm:"column:indicators;type:TEXT"`
	CreatedAt   int64          `gorm:"column:created_at;autoCreateTime:milli"`
}

func (TradeModel) TableName() string { return "trades" }

type DailyReportModel struct {
	Date              string  `gorm:"column:date;primaryKey"`
	PnL               float64 `gorm:"column:pnl"`
	PeakPnL           float64 `gorm:"column:peak_pnl"`
	Drawdown          float64 `gorm:"column:drawdown"`
	Trades            int     `gorm:"column:trades"`
	Wins              int     `gorm:"column:wins"`
	Losses            int     `gorm:"column:losses"`
	WinRate           float64 `gorm:"column:win_rate"`
	ConsecutiveLosses int     `gorm:"column:consecutive_losses"`
	EmergencyStop     bool    `gorm:"column:emergency_stop"`
	StopReason        string  `gorm:"column:stop_reason"`
	UpdatedAt         int64   `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (DailyReportModel) TableName() string { return "daily_reports" }

type EventKind string

const (
	EventEmergencyStop EventKind = "emergency_stop"
	EventResume        EventKind = "resume"
	EventEntryFailed   EventKind = "entry_failed"
	EventExitFailed    EventKind = "exit_failed"
)

// EventModel maps to 'event_log'.
type EventModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	Kind      EventKind      `gorm:"column:kind;index"`
	Symbol    string         `gorm:"column:symbol"`
	Message   string         `gorm:"column:message"`
	Details   datatypes.JSON `gorm:"column:details;type:TEXT"`
	Timestamp int64          `gorm:"column:timestamp;index"`
}

func (EventModel) TableName() string { return "event_log" }
