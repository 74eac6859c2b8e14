// Package filter is the optional second opinion consulted before an entry.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Filter judges an 11-dimensional feature vector.
type Filter interface {
	Predict(ctx context.Context, features []float64) (accept bool, confidence float64, err error)
}

// Passthrough accepts everything with full confidence.
type Passthrough struct{}

func (Passthrough) Predict(context.Context, []float64) (bool, float64, error) {
	return true, 1, nil
}

// HTTPFilter posts {"features":[...]} and reads accept/confidence from the
// JSON response. A missing accept field is derived from confidence ≥ 0.5.
type HTTPFilter struct {
	URL    string
	Client *http.Client
}

func NewHTTPFilter(url string, timeout time.Duration) *HTTPFilter {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &HTTPFilter{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFilter) Predict(ctx context.Context, features []float64) (bool, float64, error) {
	body, err := json.Marshal(map[string]any{"features": features})
	if err != nil {
		return false, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.Client.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, 0, err
	}
	if resp.StatusCode/100 != 2 {
		return false, 0, fmt.Errorf("filter status=%d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return false, 0, fmt.Errorf("filter returned invalid json")
	}
	res := gjson.ParseBytes(raw)
	conf := res.Get("confidence")
	if !conf.Exists() {
		return false, 0, fmt.Errorf("filter response without confidence")
	}
	confidence := conf.Float()
	accept := confidence >= 0.5
	if a := res.Get("accept"); a.Exists() {
		accept = a.Bool()
	}
	return accept, confidence, nil
}

// Gate combines a Filter with the minimum confidence an entry needs.
// Errors let the entry through.
type Gate struct {
	Filter    Filter
	Threshold float64
}

// Allow reports whether the entry may proceed, along with the confidence
// seen and the error if the filter failed.
func (g Gate) Allow(ctx context.Context, features []float64) (bool, float64, error) {
	if g.Filter == nil {
		return true, 1, nil
	}
	accept, confidence, err := g.Filter.Predict(ctx, features)
	if err != nil {
		return true, 0, err
	}
	return accept && confidence >= g.Threshold, confidence, nil
}
