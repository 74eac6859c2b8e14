package trader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbot/internal/gateway/notifier"
	"tierbot/internal/position"
)

func TestHandleCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.bot.HandleCommand(ctx, notifier.Command{Name: "positions"})
	assert.Equal(t, "No open positions", out)

	h.openLong(t, "BTCUSDT", 100)
	out = h.bot.HandleCommand(ctx, notifier.Command{Name: "positions"})
	assert.Contains(t, out, "Positions (1)")
	assert.Contains(t, out, "BTCUSDT LONG @ 100 x 10")

	out = h.bot.HandleCommand(ctx, notifier.Command{Name: "status"})
	assert.Contains(t, out, "Status: STOPPED")
	assert.Contains(t, out, "positions: 1")

	_, err := h.bot.Positions.Close(h.bot.Positions.All()[0].ID, 100, 0, position.ExitManual)
	require.NoError(t, err)
	out = h.bot.HandleCommand(ctx, notifier.Command{Name: "stop", Args: []string{"maintenance", "window"}})
	assert.Equal(t, "🛑 Emergency stop activated", out)
	stopped, reason := h.bot.Risk.Stopped()
	assert.True(t, stopped)
	assert.Equal(t, "maintenance window", reason)
	assert.Contains(t, h.bot.HandleCommand(ctx, notifier.Command{Name: "status"}), "stop reason: maintenance window")

	assert.Equal(t, "▶️ Bot resumed", h.bot.HandleCommand(ctx, notifier.Command{Name: "start"}))
	stopped, _ = h.bot.Risk.Stopped()
	assert.False(t, stopped)

	assert.Contains(t, h.bot.HandleCommand(ctx, notifier.Command{Name: "help"}), "/status")
}
