package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(strategy.Summary{Bars: 100, Buys: 3, Sells: 2, Holds: 95, Traded: 50}, 2*time.Millisecond)
	m.ObserveRun(strategy.Summary{Bars: 10, Buys: 1, Holds: 9, Traded: 10}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 110.0, testutil.ToFloat64(m.BarsProcessed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("buy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("sell")))
	assert.Equal(t, 104.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("hold")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.LastTraded))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "ssl_run_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestObserveFailure(t *testing.T) {
	m := New()
	m.ObserveFailure(&model.SchemaError{Missing: []string{"close"}})
	m.ObserveFailure(fmt.Errorf("wrapped: %w", &model.InvalidParameterError{Name: "length"}))
	m.ObserveFailure(fmt.Errorf("disk on fire"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunFailures.WithLabelValues("schema")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunFailures.WithLabelValues("parameter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunFailures.WithLabelValues("other")))
}

func TestServer_MetricsAndHealth(t *testing.T) {
	m := New()
	m.ObserveRun(strategy.Summary{Bars: 5, Holds: 5}, time.Millisecond)

	health := NewHealthStatus()
	srv := httptest.NewServer(NewServer(":0", m, health).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ssl_bars_processed_total 5")

	// sqlite never checked: unhealthy
	resp2, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)

	health.mu.Lock()
	health.SQLiteOK = true
	health.mu.Unlock()

	resp3, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&status))
	assert.Equal(t, "healthy", status["status"])
}

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveRun(strategy.Summary{Bars: 1, Holds: 1}, time.Millisecond)
	require.NoError(t, m.Push(context.Background(), srv.URL, "ssl"))
	assert.Equal(t, "/metrics/job/ssl", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := New()
	assert.Error(t, m.Push(context.Background(), srv.URL, "ssl"))
}
