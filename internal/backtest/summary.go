package backtest

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the human-readable YAML export of a run.
type Summary struct {
	RunID     string    `yaml:"run_id"`
	Symbol    string    `yaml:"symbol"`
	Ticks     int       `yaml:"ticks"`
	From      time.Time `yaml:"from"`
	To        time.Time `yaml:"to"`
	OpenAtEnd bool      `yaml:"open_at_end,omitempty"`
	Stats     Stats     `yaml:"stats"`
	Markers   []Marker  `yaml:"markers,omitempty"`
}

func NewSummary(res *Result) Summary {
	return Summary{
		RunID:     res.RunID,
		Symbol:    res.Symbol,
		Ticks:     res.Ticks,
		From:      res.From,
		To:        res.To,
		OpenAtEnd: res.OpenAtEnd,
		Stats:     res.Stats,
		Markers:   res.Markers,
	}
}

func WriteSummary(w io.Writer, res *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSummary(res)); err != nil {
		return err
	}
	return enc.Close()
}

// SaveSummary writes <dir>/<symbol>_<run>.yaml and returns the path.
func SaveSummary(dir string, res *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, strings.ReplaceAll(res.Symbol, "/", "_")+"_"+res.RunID[:8]+".yaml")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteSummary(f, res); err != nil {
		return "", err
	}
	return path, nil
}
