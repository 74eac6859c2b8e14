package backtest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"tierbot/internal/logger"
	"tierbot/internal/market"
)

var ErrNoData = errors.New("backtest: no market data")

const maxLineBytes = 4 << 20

// tickSchema 约束单条盘口记录；仅在 Strict 模式下校验。
const tickSchema = `{
  "type": "object",
  "required": ["bids", "asks"],
  "properties": {
    "symbol": {"type": "string"},
    "price":  {"type": "number", "exclusiveMinimum": 0},
    "volume": {"type": "number", "minimum": 0},
    "bids":   {"$ref": "#/$defs/levels"},
    "asks":   {"$ref": "#/$defs/levels"}
  },
  "$defs": {
    "levels": {
      "type": "array",
      "items": {
        "type": "array",
        "minItems": 2,
        "items": {"type": "number", "minimum": 0}
      }
    }
  }
}`

// Loader reads recorded order book ticks from JSON lines. Two layouts are
// accepted per line:
//
//	{"type":"orderbook","data":{"bids":[[p,q]],"asks":[[p,q]],"price":p,"volume":v}}
//	{"timestamp":1700000000000,"symbol":"BTCUSDT","bids":[[p,q]],"asks":[[p,q]],"price":p,"volume":v}
//
// Records of another type are ignored. Malformed lines are skipped unless
// Strict is set, in which case the first one aborts the load.
type Loader struct {
	Depth  int
	Strict bool
	schema *jsonschema.Schema
}

func NewLoader(depth int, strict bool) (*Loader, error) {
	l := &Loader{Depth: depth, Strict: strict}
	if strict {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tick.json", strings.NewReader(tickSchema)); err != nil {
			return nil, err
		}
		schema, err := compiler.Compile("tick.json")
		if err != nil {
			return nil, fmt.Errorf("compile tick schema: %w", err)
		}
		l.schema = schema
	}
	return l, nil
}

// Read parses every line of r; symbol fills records that carry none.
func (l *Loader) Read(r io.Reader, symbol string) ([]market.Tick, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var (
		out     []market.Tick
		lineNo  int
		skipped int
	)
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		tick, ok, err := l.parse(line, symbol)
		if err != nil {
			if l.Strict {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			skipped++
			continue
		}
		if ok {
			out = append(out, tick)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warnf("backtest: skipped %d malformed lines for %s", skipped, symbol)
	}
	return out, nil
}

func (l *Loader) parse(line []byte, symbol string) (market.Tick, bool, error) {
	if !gjson.ValidBytes(line) {
		return market.Tick{}, false, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(line)
	body := root
	if typ := root.Get("type"); typ.Exists() {
		if typ.String() != "orderbook" {
			return market.Tick{}, false, nil
		}
		body = root.Get("data")
		if !body.IsObject() {
			return market.Tick{}, false, fmt.Errorf("orderbook record without data")
		}
	}
	if l.schema != nil {
		var doc any
		if err := json.Unmarshal([]byte(body.Raw), &doc); err != nil {
			return market.Tick{}, false, err
		}
		if err := l.schema.Validate(doc); err != nil {
			return market.Tick{}, false, err
		}
	}

	book := market.OrderBook{
		Symbol: firstString(body.Get("symbol"), root.Get("symbol"), symbol),
		Bids:   parseLevels(body.Get("bids"), l.Depth),
		Asks:   parseLevels(body.Get("asks"), l.Depth),
	}
	if err := book.Validate(); err != nil {
		return market.Tick{}, false, err
	}
	ts := parseTime(body.Get("timestamp"))
	if ts.IsZero() {
		ts = parseTime(root.Get("timestamp"))
	}
	book.Time = ts

	price := body.Get("price").Float()
	if price <= 0 {
		price = book.MidPrice()
	}
	return market.Tick{
		Time:   ts,
		Symbol: book.Symbol,
		Book:   book,
		Price:  price,
		Volume: body.Get("volume").Float(),
	}, true, nil
}

func parseLevels(v gjson.Result, depth int) []market.Level {
	var out []market.Level
	v.ForEach(func(_, lvl gjson.Result) bool {
		if depth > 0 && len(out) >= depth {
			return false
		}
		var p, q float64
		if lvl.IsArray() {
			arr := lvl.Array()
			if len(arr) < 2 {
				return true
			}
			p, q = arr[0].Float(), arr[1].Float()
		} else {
			p, q = lvl.Get("price").Float(), lvl.Get("qty").Float()
		}
		if p > 0 {
			out = append(out, market.Level{Price: p, Qty: q})
		}
		return true
	})
	return out
}

// parseTime accepts epoch seconds, epoch milliseconds or RFC 3339.
func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if f <= 0 {
			return time.Time{}
		}
		if f > 1e12 {
			return time.UnixMilli(int64(f)).UTC()
		}
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	return time.Time{}
}

func firstString(vals ...any) string {
	for _, v := range vals {
		switch s := v.(type) {
		case gjson.Result:
			if s.Exists() && s.String() != "" {
				return s.String()
			}
		case string:
			if s != "" {
				return s
			}
		}
	}
	return ""
}

func (l *Loader) LoadFile(path, symbol string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Read(f, symbol)
}

// SessionFiles lists <dir>/<SYMBOL>_*.jsonl in name order; "/" in the
// symbol is written as "_".
func SessionFiles(dir, symbol string) ([]string, error) {
	pattern := filepath.Join(dir, strings.ReplaceAll(symbol, "/", "_")+"_*.jsonl")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadSymbol concatenates every recorded session of symbol under dir.
func (l *Loader) LoadSymbol(dir, symbol string) ([]market.Tick, error) {
	files, err := SessionFiles(dir, symbol)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s in %s: %w", symbol, dir, ErrNoData)
	}
	var all []market.Tick
	for _, f := range files {
		ticks, err := l.LoadFile(f, symbol)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(f), err)
		}
		all = append(all, ticks...)
	}
	logger.Infof("backtest: loaded %d ticks for %s from %d files", len(all), symbol, len(files))
	return all, nil
}

// Split keeps ticks[int(len*trainRatio):] when useTest is set, otherwise
// everything.
func Split(ticks []market.Tick, trainRatio float64, useTest bool) []market.Tick {
	if !useTest {
		return ticks
	}
	if trainRatio < 0 {
		trainRatio = 0
	}
	if trainRatio > 1 {
		trainRatio = 1
	}
	idx := int(float64(len(ticks)) * trainRatio)
	return ticks[idx:]
}
