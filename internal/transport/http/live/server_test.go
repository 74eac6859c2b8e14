package livehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tierbot/internal/trader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockController struct{ mock.Mock }

func (m *mockController) Status() trader.Status {
	return m.Called().Get(0).(trader.Status)
}

func (m *mockController) OpenPositions() []trader.PositionView {
	return m.Called().Get(0).([]trader.PositionView)
}

func (m *mockController) RecentTrades(_ context.Context, limit int) ([]trader.TradeView, error) {
	args := m.Called(limit)
	return args.Get(0).([]trader.TradeView), args.Error(1)
}

func (m *mockController) EmergencyStop(_ context.Context, reason string) error {
	return m.Called(reason).Error(0)
}

func (m *mockController) Resume(context.Context) { m.Called() }

func newServer(t *testing.T, bot Controller) http.Handler {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tierbot_open_positions 0\n"))
	})
	srv, err := NewServer(ServerConfig{Addr: ":0", Bot: bot, Metrics: metrics})
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresBot(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(t, &mockController{})
	w := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tierbot_open_positions")
}

func TestStatusAndPositions(t *testing.T) {
	bot := &mockController{}
	bot.On("Status").Return(trader.Status{State: trader.StateRunning, Symbols: []string{"BTCUSDT"}})
	bot.On("OpenPositions").Return([]trader.PositionView{{ID: "p1", Symbol: "BTCUSDT", Side: "LONG"}})
	h := newServer(t, bot)

	w := do(h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "RUNNING", st["status"])

	w = do(h, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p1"`)
	bot.AssertExpectations(t)
}

func TestTrades(t *testing.T) {
	bot := &mockController{}
	bot.On("RecentTrades", 20).Return([]trader.TradeView{{ID: "t1", Reason: "TP"}}, nil)
	bot.On("RecentTrades", 100).Return([]trader.TradeView(nil), errors.New("db closed"))
	h := newServer(t, bot)

	w := do(h, http.MethodGet, "/api/trades?limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"TP"`)

	w = do(h, http.MethodGet, "/api/trades", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(h, http.MethodGet, "/api/trades?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopAndStart(t *testing.T) {
	bot := &mockController{}
	bot.On("EmergencyStop", "volatility").Return(nil).Once()
	bot.On("EmergencyStop", "HTTP request").Return(errors.New("BTCUSDT: sell failed")).Once()
	bot.On("Resume").Return().Once()
	bot.On("Status").Return(trader.Status{State: trader.StateRunning})
	h := newServer(t, bot)

	w := do(h, http.MethodPost, "/api/stop", `{"reason":"volatility"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"EMERGENCY"}`, w.Body.String())

	w = do(h, http.MethodPost, "/api/stop", "")
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Contains(t, w.Body.String(), "sell failed")

	w = do(h, http.MethodPost, "/api/stop", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, "/api/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"RUNNING"}`, w.Body.String())
	bot.AssertExpectations(t)
}
