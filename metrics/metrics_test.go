package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.SignalCreated("UNVERIFIED")
	a.SignalCreated("UNVERIFIED")
	b.SignalCreated("REQUIRES_REVIEW")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.SignalsCreated.WithLabelValues("UNVERIFIED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SignalsCreated.WithLabelValues("UNVERIFIED")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SignalCreated("UNVERIFIED")
	m.ValidationRejected()
	m.Verified("accept")
	m.CorrelationFinished("completed", time.Second)
	m.ConnectorQueried("NewsAPI", "ok", time.Millisecond)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ConnectorQueried("CoinGecko", "demo", 20*time.Millisecond)
	m.CorrelationFinished("completed", 150*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `blackgpt_connector_queries_total{outcome="demo",source="CoinGecko"} 1`)
	assert.Contains(t, body, `blackgpt_correlation_runs_total{outcome="completed"} 1`)
}
