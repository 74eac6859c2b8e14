package indicator

import "strings"

// Mode selects between the simplified formulas that existing backtests were
// produced with and the textbook definitions.
type Mode string

const (
	ModeSimplified Mode = "simplified"
	ModeTextbook   Mode = "textbook"
)

func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeTextbook)) {
		return ModeTextbook
	}
	return ModeSimplified
}

// Params 汇总指标周期与阈值。
type Params struct {
	Mode          Mode
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	BBPeriod      int
	BBStd         float64
	StochK        int
	StochD        int
	VolumePeriod  int
}

func DefaultParams() Params {
	return Params{
		Mode:          ModeSimplified,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		BBPeriod:      20,
		BBStd:         2.0,
		StochK:        14,
		StochD:        3,
		VolumePeriod:  20,
	}
}

// Snapshot is the fixed-schema indicator record attached to positions and
// trades. HasX flags tell a genuine zero apart from "unavailable".
type Snapshot struct {
	RSI         float64 `json:"rsi"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"macd_signal"`
	MACDHist    float64 `json:"macd_hist"`
	BBUpper     float64 `json:"bb_upper"`
	BBMiddle    float64 `json:"bb_middle"`
	BBLower     float64 `json:"bb_lower"`
	BBPosition  float64 `json:"bb_position"`
	StochK      float64 `json:"stoch_k"`
	StochD      float64 `json:"stoch_d"`
	VolumeRatio float64 `json:"volume_ratio"`

	HasRSI    bool `json:"has_rsi"`
	HasMACD   bool `json:"has_macd"`
	HasBB     bool `json:"has_bb"`
	HasStoch  bool `json:"has_stoch"`
	HasVolume bool `json:"has_volume"`
}

// Complete reports whether the three indicators the strategic tier scores
// on are all available.
func (s Snapshot) Complete() bool {
	return s.HasRSI && s.HasMACD && s.HasBB
}

type Calculator struct {
	p Params
}

func NewCalculator(p Params) *Calculator {
	def := DefaultParams()
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = def.RSIPeriod
	}
	if p.RSIOversold <= 0 {
		p.RSIOversold = def.RSIOversold
	}
	if p.RSIOverbought <= 0 {
		p.RSIOverbought = def.RSIOverbought
	}
	if p.MACDFast <= 0 {
		p.MACDFast = def.MACDFast
	}
	if p.MACDSlow <= 0 {
		p.MACDSlow = def.MACDSlow
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = def.MACDSignal
	}
	if p.BBPeriod <= 0 {
		p.BBPeriod = def.BBPeriod
	}
	if p.BBStd <= 0 {
		p.BBStd = def.BBStd
	}
	if p.StochK <= 0 {
		p.StochK = def.StochK
	}
	if p.StochD <= 0 {
		p.StochD = def.StochD
	}
	if p.VolumePeriod <= 0 {
		p.VolumePeriod = def.VolumePeriod
	}
	if p.Mode == "" {
		p.Mode = ModeSimplified
	}
	return &Calculator{p: p}
}

func (c *Calculator) Params() Params { return c.p }

func (c *Calculator) RSI(prices []float64) (float64, bool) {
	return RSI(prices, c.p.RSIPeriod)
}

func (c *Calculator) MACD(prices []float64) (MACDResult, bool) {
	if c.p.Mode == ModeTextbook {
		return MACDTextbook(prices, c.p.MACDFast, c.p.MACDSlow, c.p.MACDSignal)
	}
	return MACD(prices, c.p.MACDFast, c.p.MACDSlow, c.p.MACDSignal)
}

func (c *Calculator) Bollinger(prices []float64) (BollingerResult, bool) {
	return Bollinger(prices, c.p.BBPeriod, c.p.BBStd)
}

func (c *Calculator) Stochastic(prices []float64) (StochasticResult, bool) {
	if c.p.Mode == ModeTextbook {
		return StochasticTextbook(prices, c.p.StochK, c.p.StochD)
	}
	return Stochastic(prices, c.p.StochK, c.p.StochD)
}

// Compute 计算全部指标快照，volumes 可为空。
func (c *Calculator) Compute(prices, volumes []float64) Snapshot {
	var s Snapshot
	if v, ok := c.RSI(prices); ok {
		s.RSI, s.HasRSI = v, true
	}
	if m, ok := c.MACD(prices); ok {
		s.MACD, s.MACDSignal, s.MACDHist, s.HasMACD = m.Line, m.Signal, m.Histogram, true
	}
	if b, ok := c.Bollinger(prices); ok {
		s.BBUpper, s.BBMiddle, s.BBLower, s.BBPosition, s.HasBB = b.Upper, b.Middle, b.Lower, b.Position, true
	}
	if st, ok := c.Stochastic(prices); ok {
		s.StochK, s.StochD, s.HasStoch = st.K, st.D, true
	}
	if v, ok := VolumeRatio(volumes, c.p.VolumePeriod); ok {
		s.VolumeRatio, s.HasVolume = v, true
	}
	return s
}
