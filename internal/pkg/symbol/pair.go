// Package symbol parses spot pair names. Config and logs accept either
// BTC/USDT or BTCUSDT; the exchange only understands the concatenated form.
package symbol

import "strings"

// Pair 为现货交易对。
type Pair struct {
	Base  string
	Quote string
}

// 无分隔符时按报价币后缀拆分，长后缀在前以免 FDUSD 被识别成 USD。
var quotes = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "KRW", "BTC", "ETH", "BNB"}

func Parse(s string) (Pair, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if base, quote, ok := strings.Cut(s, "/"); ok {
		p := Pair{Base: strings.TrimSpace(base), Quote: strings.TrimSpace(quote)}
		return p, p.Base != "" && p.Quote != ""
	}
	for _, q := range quotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return Pair{Base: s[:len(s)-len(q)], Quote: q}, true
		}
	}
	return Pair{}, false
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

// Exchange returns BASEQUOTE.
func (p Pair) Exchange() string { return p.Base + p.Quote }

// Exchange 把任意写法转成交易所格式；无法识别的输入仅做大写与去斜杠。
func Exchange(s string) string {
	if p, ok := Parse(s); ok {
		return p.Exchange()
	}
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "/", "")
}

// Quote returns the quote asset, or "" when s is not a recognised pair.
func Quote(s string) string {
	p, _ := Parse(s)
	return p.Quote
}
