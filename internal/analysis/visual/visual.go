package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

type ImageResult struct {
	Bytes    []byte `json:"-"`
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

type Point struct {
	Time  time.Time
	Value float64
}

// Mark 为价格图上的开/平仓标记。
type Mark struct {
	Time  time.Time
	Price float64
	Entry bool
	Label string
}

type ReportInput struct {
	Symbol   string
	Subtitle string
	Prices   []Point
	Equity   []Point
	Marks    []Mark
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorPrice         = "#3b82f6"
	colorEquity        = "#fbbf24"

	chartWidthPx   = 1600
	priceHeightPx  = 560
	equityHeightPx = 320

	// maxPoints caps the price series; longer replays are decimated.
	maxPoints = 3000
)

// RenderHTML builds the price/markers and equity charts as one page.
func RenderHTML(input ReportInput) ([]byte, error) {
	if input.Symbol == "" {
		return nil, fmt.Errorf("symbol required for report")
	}
	if len(input.Prices) == 0 {
		return nil, fmt.Errorf("no prices to plot for %s", input.Symbol)
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = strings.ToUpper(input.Symbol) + " backtest"

	prices := decimate(input.Prices, maxPoints)
	page.AddCharts(buildPriceChart(input, prices))
	if len(input.Equity) > 0 {
		page.AddCharts(buildEquityChart(input.Equity))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPNG renders the report through headless Chrome.
func RenderPNG(ctx context.Context, input ReportInput) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	html, err := RenderHTML(input)
	if err != nil {
		return ImageResult{}, err
	}
	height := priceHeightPx + equityHeightPx + 80
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, height)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:    png,
		Base64:   base64.StdEncoding.EncodeToString(png),
		Filename: fmt.Sprintf("%s_backtest.png", strings.ToLower(strings.ReplaceAll(input.Symbol, "/", "_"))),
	}, nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func initOpts(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

func buildPriceChart(input ReportInput, prices []Point) *charts.Line {
	minPrice, maxPrice := bounds(prices)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1e-6, math.Abs(maxPrice)*0.01)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(priceHeightPx)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         strings.ToUpper(input.Symbol),
			Subtitle:      input.Subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 6),
			Max:       round(maxPrice+padding, 6),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	xAxis := buildXAxis(prices)
	data := make([]opts.LineData, len(prices))
	for i, p := range prices {
		data[i] = opts.LineData{Value: round(p.Value, 6)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Price", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 1}),
	)

	if len(input.Marks) > 0 {
		line.Overlap(buildMarks(prices, xAxis, input.Marks))
	}
	return line
}

func buildMarks(prices []Point, xAxis []string, marks []Mark) *charts.Scatter {
	entries := make([]opts.ScatterData, len(prices))
	exits := make([]opts.ScatterData, len(prices))
	for i := range prices {
		entries[i] = opts.ScatterData{Value: nil}
		exits[i] = opts.ScatterData{Value: nil}
	}
	for _, m := range marks {
		idx := nearestIndex(prices, m.Time)
		if m.Entry {
			entries[idx] = opts.ScatterData{Value: round(m.Price, 6), Symbol: "triangle", SymbolSize: 12}
			continue
		}
		exits[idx] = opts.ScatterData{Name: m.Label, Value: round(m.Price, 6), Symbol: "diamond", SymbolSize: 12}
	}
	sc := charts.NewScatter()
	sc.SetXAxis(xAxis)
	sc.AddSeries("Entry", entries, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBull}))
	sc.AddSeries("Exit", exits, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBear}))
	return sc
}

func buildEquityChart(equity []Point) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(equityHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "Cumulative PnL", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	data := make([]opts.LineData, len(equity))
	for i, p := range equity {
		data[i] = opts.LineData{Value: round(p.Value, 2)}
	}
	line.SetXAxis(buildXAxis(equity))
	line.AddSeries("Equity", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.15)}),
	)
	return line
}

func buildXAxis(points []Point) []string {
	x := make([]string, len(points))
	for i, p := range points {
		x[i] = p.Time.UTC().Format("01-02 15:04:05.000")
	}
	return x
}

// decimate keeps every k-th point plus the last so the page stays light.
func decimate(points []Point, limit int) []Point {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	step := int(math.Ceil(float64(len(points)) / float64(limit)))
	out := make([]Point, 0, limit+1)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	if last := points[len(points)-1]; !out[len(out)-1].Time.Equal(last.Time) {
		out = append(out, last)
	}
	return out
}

// nearestIndex returns the first point at or after t, clamped to the series.
func nearestIndex(points []Point, t time.Time) int {
	idx := sort.Search(len(points), func(i int) bool { return !points[i].Time.Before(t) })
	if idx >= len(points) {
		idx = len(points) - 1
	}
	return idx
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func bounds(points []Point) (minVal, maxVal float64) {
	if len(points) == 0 {
		return 0, 0
	}
	minVal, maxVal = points[0].Value, points[0].Value
	for _, p := range points[1:] {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
	}
	return minVal, maxVal
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
