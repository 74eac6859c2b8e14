package filter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPFilter(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		accept     bool
		confidence float64
		wantErr    bool
	}{
		{"explicit accept", 200, `{"accept":true,"confidence":0.72}`, true, 0.72, false},
		{"explicit reject", 200, `{"accept":false,"confidence":0.9}`, false, 0.9, false},
		{"derived accept", 200, `{"confidence":0.55}`, true, 0.55, false},
		{"derived reject", 200, `{"confidence":0.2}`, false, 0.2, false},
		{"missing confidence", 200, `{"accept":true}`, false, 0, true},
		{"server error", 500, `oops`, false, 0, true},
		{"bad json", 200, `{`, false, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Features []float64 `json:"features"`
				}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Len(t, req.Features, 3)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			accept, conf, err := NewHTTPFilter(srv.URL, 0).Predict(context.Background(), []float64{0.1, 0.2, 0.3})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.accept, accept)
			assert.InDelta(t, tc.confidence, conf, 1e-12)
		})
	}
}

type mockFilter struct{ mock.Mock }

func (m *mockFilter) Predict(ctx context.Context, features []float64) (bool, float64, error) {
	args := m.Called(features)
	return args.Bool(0), args.Get(1).(float64), args.Error(2)
}

func TestGate(t *testing.T) {
	f := &mockFilter{}
	f.On("Predict", []float64{1}).Return(true, 0.7, nil).Once()
	f.On("Predict", []float64{2}).Return(true, 0.5, nil).Once()
	f.On("Predict", []float64{3}).Return(false, 0.0, errors.New("down")).Once()
	g := Gate{Filter: f, Threshold: 0.6}
	ctx := context.Background()

	ok, conf, err := g.Allow(ctx, []float64{1})
	assert.True(t, ok)
	assert.Equal(t, 0.7, conf)
	assert.NoError(t, err)

	ok, _, _ = g.Allow(ctx, []float64{2})
	assert.False(t, ok, "below threshold")

	ok, _, err = g.Allow(ctx, []float64{3})
	assert.True(t, ok, "errors pass through")
	assert.Error(t, err)
	f.AssertExpectations(t)

	ok, conf, err = Gate{}.Allow(ctx, nil)
	assert.True(t, ok)
	assert.Equal(t, 1.0, conf)
	assert.NoError(t, err)

	ok, _, _ = Passthrough{}.Predict(ctx, nil)
	assert.True(t, ok)
}
