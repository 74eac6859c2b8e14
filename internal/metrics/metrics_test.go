package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Entries.WithLabelValues("BTCUSDT").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Entries.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Entries.WithLabelValues("BTCUSDT")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Exits.WithLabelValues("ETHUSDT", "TP").Add(2)
	m.SetEmergency(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tierbot_exits_total{reason="TP",symbol="ETHUSDT"} 2`)
	assert.Contains(t, string(body), "tierbot_emergency_stop 1")

	m.SetEmergency(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Emergency))
}
