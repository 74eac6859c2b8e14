package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBook() OrderBook {
	return OrderBook{
		Symbol: "BTCUSDT",
		Bids:   []Level{{Price: 100, Qty: 3}, {Price: 99, Qty: 1}},
		Asks:   []Level{{Price: 101, Qty: 1}, {Price: 102, Qty: 1}},
	}
}

func TestOrderBookValidate(t *testing.T) {
	require.NoError(t, sampleBook().Validate())

	empty := OrderBook{Symbol: "X", Bids: []Level{{Price: 1, Qty: 1}}}
	assert.True(t, errors.Is(empty.Validate(), ErrEmptyBook))

	crossed := OrderBook{Symbol: "X", Bids: []Level{{Price: 2, Qty: 1}}, Asks: []Level{{Price: 2, Qty: 1}}}
	assert.True(t, errors.Is(crossed.Validate(), ErrCrossedBook))
}

func TestOrderBookMetrics(t *testing.T) {
	b := sampleBook()
	assert.Equal(t, 100.0, b.BestBid())
	assert.Equal(t, 101.0, b.BestAsk())
	assert.InDelta(t, 100.5, b.MidPrice(), 1e-12)
	assert.InDelta(t, 0.01, b.SpreadRate(), 1e-12)
	assert.InDelta(t, 1/100.5*1e4, b.SpreadBps(), 1e-9)

	bid := 100*3 + 99*1.0
	ask := 101 + 102.0
	assert.InDelta(t, (bid-ask)/(bid+ask), b.WOBI(10), 1e-12)
	assert.InDelta(t, 3.0/1.0, b.DepthRatio(1), 1e-12)
	assert.InDelta(t, 4.0/2.0, b.DepthRatio(5), 1e-12)

	assert.Equal(t, 0.0, OrderBook{}.WOBI(10))
	assert.Equal(t, 1.0, OrderBook{Bids: []Level{{Price: 1, Qty: 1}}}.DepthRatio(5))
}

func TestHasLiquidity(t *testing.T) {
	b := sampleBook()
	assert.True(t, b.HasLiquidity(100, 5, 1.5))
	assert.False(t, b.HasLiquidity(200, 5, 1.5))
}

func TestBufferEviction(t *testing.T) {
	buf := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		buf.Push(float64(i), float64(i*10))
	}
	assert.Equal(t, []float64{3, 4, 5}, buf.Prices())
	assert.Equal(t, []float64{30, 40, 50}, buf.Volumes())
	assert.Equal(t, 3, buf.Len())
	assert.True(t, buf.Ready(3))
	assert.False(t, buf.Ready(4))

	assert.Equal(t, 0.0, buf.LastWOBI())
	buf.PushWOBI(0.2)
	buf.PushWOBI(-0.1)
	assert.Equal(t, []float64{0.2, -0.1}, buf.WOBIs())
	assert.Equal(t, -0.1, buf.LastWOBI())
	assert.False(t, buf.Ready(3) && len(buf.WOBIs()) == 3)
}

func TestBufferReturnsCopies(t *testing.T) {
	buf := NewBuffer(0)
	assert.Equal(t, DefaultBufferSize, buf.Cap())
	buf.Push(1, 1)
	prices := buf.Prices()
	prices[0] = 42
	assert.Equal(t, []float64{1}, buf.Prices())
}

func TestBufferSet(t *testing.T) {
	set := NewBufferSet(10)
	a := set.Get("A")
	assert.Same(t, a, set.Get("A"))
	set.Get("B")
	assert.ElementsMatch(t, []string{"A", "B"}, set.Symbols())
}
