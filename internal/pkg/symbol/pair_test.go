package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Pair
		ok   bool
	}{
		{"btcusdt", Pair{"BTC", "USDT"}, true},
		{"BTC/KRW", Pair{"BTC", "KRW"}, true},
		{" eth / usdc ", Pair{"ETH", "USDC"}, true},
		{"BNBFDUSD", Pair{"BNB", "FDUSD"}, true},
		{"ETHBTC", Pair{"ETH", "BTC"}, true},
		{"USDT", Pair{}, false},
		{"BTC/", Pair{"BTC", ""}, false},
		{"", Pair{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Parse(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExchange(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Exchange("btc/usdt"))
	assert.Equal(t, "BTCUSDT", Exchange("BTCUSDT"))
	assert.Equal(t, "FOO", Exchange("f/oo"))
	assert.Equal(t, "BTC/USDT", Pair{"BTC", "USDT"}.String())
	assert.Equal(t, "USDT", Quote("btcusdt"))
	assert.Equal(t, "", Quote("???"))
}
