package position

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func longPos(id, symbol string) Position {
	return Position{
		ID:          id,
		Symbol:      symbol,
		Side:        Long,
		EntryTime:   entryAt,
		EntryPrice:  100,
		Amount:      2,
		EntryFee:    0.5,
		SignalScore: 0.7,
		HighWater:   100,
	}
}

func TestOpenDuplicateKeepsOriginal(t *testing.T) {
	m := NewManager(DefaultExitRules())
	require.NoError(t, m.Open(longPos("p1", "BTC")))

	dup := longPos("p1", "ETH")
	dup.EntryPrice = 1
	err := m.Open(dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPositionExists))

	got, ok := m.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, 100.0, got.EntryPrice)
	assert.Equal(t, 1, m.Count())
}

func TestCloseAbsentHasNoSideEffects(t *testing.T) {
	m := NewManager(DefaultExitRules())
	require.NoError(t, m.Open(longPos("p1", "BTC")))
	_, err := m.Close("nope", 101, 0.1, ExitManual)
	assert.True(t, errors.Is(err, ErrPositionNotFound))
	assert.Equal(t, 1, m.Count())
}

func TestOpenThenClose(t *testing.T) {
	m := NewManager(DefaultExitRules())
	m.SetClock(func() time.Time { return entryAt.Add(42 * time.Second) })
	require.NoError(t, m.Open(longPos("p1", "BTC")))

	trade, err := m.Close("p1", 103, 0.25, ExitTakeProfit)
	require.NoError(t, err)
	assert.InDelta(t, (103-100)*2-0.5-0.25, trade.PnL, 1e-12)
	assert.Equal(t, ExitTakeProfit, trade.Reason)
	assert.Equal(t, 42*time.Second, trade.Holding)
	assert.Equal(t, 0.7, trade.SignalScore)
	assert.True(t, trade.Win())

	_, ok := m.Get("p1")
	assert.False(t, ok)
	assert.False(t, m.HasSymbol("BTC"))
	_, err = m.Close("p1", 103, 0.25, ExitTakeProfit)
	assert.True(t, errors.Is(err, ErrPositionNotFound))
}

func TestShortPnL(t *testing.T) {
	assert.InDelta(t, (100-97)*2-0.5-0.25, NetPnL(Short, 100, 97, 2, 0.5, 0.25), 1e-12)
	p := longPos("s", "BTC")
	p.Side = Short
	assert.InDelta(t, 0.03, p.PnLRate(97), 1e-12)
}

func TestTryOpenSymbolBusy(t *testing.T) {
	m := NewManager(DefaultExitRules())
	require.NoError(t, m.TryOpen(longPos("p1", "BTC")))
	err := m.TryOpen(longPos("p2", "BTC"))
	assert.True(t, errors.Is(err, ErrSymbolBusy))
	require.NoError(t, m.TryOpen(longPos("p3", "ETH")))
	assert.Equal(t, 2, m.Count())
}

func TestConcurrentOpenAndClose(t *testing.T) {
	m := NewManager(DefaultExitRules())
	var opened, closed int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if m.TryOpen(longPos(fmt.Sprintf("p%d", i), "BTC")) == nil {
				atomic.AddInt32(&opened, 1)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), opened)

	id := m.All()[0].ID
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Close(id, 101, 0, ExitManual); err == nil {
				atomic.AddInt32(&closed, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), closed)
	assert.Equal(t, 0, m.Count())
}

func TestTrailingHighWater(t *testing.T) {
	rules := DefaultExitRules()
	rules.TrailingEnabled = true
	m := NewManager(rules)
	require.NoError(t, m.Open(longPos("p1", "BTC")))

	m.UpdateTrailingHigh("p1", 101)
	m.UpdateTrailingHigh("p1", 100.5)
	m.UpdateTrailingHigh("missing", 200)
	p, _ := m.Get("p1")
	assert.Equal(t, 101.0, p.HighWater)

	assert.False(t, m.TrailingStopTriggered("p1", 100.96))
	assert.True(t, m.TrailingStopTriggered("p1", 100.9495))
	assert.False(t, m.TrailingStopTriggered("missing", 1))

	m.SetRules(DefaultExitRules())
	assert.False(t, m.TrailingStopTriggered("p1", 90), "disabled")
}

func TestTrailingNeedsHighWater(t *testing.T) {
	rules := DefaultExitRules()
	rules.TrailingEnabled = true
	p := longPos("p1", "BTC")
	p.HighWater = 0
	assert.False(t, trailingHit(p, 50, rules))
}

func TestAllOrderedByEntry(t *testing.T) {
	m := NewManager(DefaultExitRules())
	late := longPos("b", "ETH")
	late.EntryTime = entryAt.Add(time.Minute)
	require.NoError(t, m.Open(late))
	require.NoError(t, m.Open(longPos("a", "BTC")))
	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestClaimIsExclusive(t *testing.T) {
	m := NewManager(DefaultExitRules())
	require.NoError(t, m.Open(longPos("p1", "BTC")))

	p, err := m.Claim("p1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Amount)
	assert.True(t, m.Closing("p1"))

	_, err = m.Claim("p1")
	assert.ErrorIs(t, err, ErrPositionClosing)

	m.Release("p1")
	assert.False(t, m.Closing("p1"))
	_, err = m.Claim("p1")
	require.NoError(t, err)

	_, err = m.Close("p1", 101, 0, ExitTakeProfit)
	require.NoError(t, err)
	assert.False(t, m.Closing("p1"))
	_, err = m.Claim("p1")
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	m := NewManager(DefaultExitRules())
	require.NoError(t, m.Open(longPos("p1", "BTC")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Claim("p1"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
