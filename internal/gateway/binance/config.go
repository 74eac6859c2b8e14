package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey      string
	APISecret   string
	Testnet     bool
	BaseURL     string
	HTTPTimeout time.Duration
	// AmountPrecision 为卖单数量保留的小数位（向下截断）。
	AmountPrecision int32
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimSpace(out.BaseURL)
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	if out.AmountPrecision <= 0 {
		out.AmountPrecision = 6
	}
	return out
}
