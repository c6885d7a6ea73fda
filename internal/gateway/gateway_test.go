package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/breaker"
)

type countingDownstream struct {
	server *httptest.Server
	calls  atomic.Int64
	status atomic.Int64
	body   atomic.Value
}

func newCountingDownstream(t *testing.T) *countingDownstream {
	t.Helper()
	d := &countingDownstream{}
	d.status.Store(int64(http.StatusOK))
	d.body.Store(`{"ok":true}`)
	d.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(d.status.Load()))
		_, _ = io.WriteString(w, d.body.Load().(string))
	}))
	t.Cleanup(d.server.Close)
	return d
}

func newGateway(t *testing.T, downstream *countingDownstream, threshold int) *httptest.Server {
	t.Helper()
	registry := breaker.NewRegistry(breaker.Config{
		FailureThreshold: threshold,
		RecoveryTimeout:  time.Minute,
	})
	gw := NewServer(
		registry,
		[]Service{{Name: "search", BaseURL: downstream.server.URL}},
		2*time.Second,
		10*time.Second,
		zap.NewNop(),
	)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGatewayProxiesSuccess(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	gw := newGateway(t, downstream, 5)

	status, body := getJSON(t, gw.URL+"/api/v1/search/jobs")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])
	require.Equal(t, int64(1), downstream.calls.Load())
}

func TestGatewayOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	downstream.status.Store(int64(http.StatusInternalServerError))
	gw := newGateway(t, downstream, 3)

	for i := 0; i < 3; i++ {
		status, body := getJSON(t, gw.URL+"/api/v1/search/jobs")
		require.Equal(t, http.StatusServiceUnavailable, status)
		require.Equal(t, true, body["degraded"])
	}
	require.Equal(t, int64(3), downstream.calls.Load())

	// Circuit is open now; further requests are rejected without a call.
	status, body := getJSON(t, gw.URL+"/api/v1/search/jobs")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, true, body["degraded"])
	require.Equal(t, int64(3), downstream.calls.Load())
}

func TestGatewayDegradedSearchPayload(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	downstream.status.Store(int64(http.StatusBadGateway))
	gw := newGateway(t, downstream, 1)

	resp, err := http.Get(gw.URL + "/api/v1/search/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "10", resp.Header.Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "search", body["service"])
	require.Equal(t, false, body["available"])
	require.Equal(t, []any{}, body["jobs"])
	require.Equal(t, []any{}, body["results"])
	require.Equal(t, float64(0), body["total"])
}

func TestGatewayClientErrorsPassThrough(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	downstream.status.Store(int64(http.StatusNotFound))
	downstream.body.Store(`{"error":"not found"}`)
	gw := newGateway(t, downstream, 2)

	// 4xx responses are relayed untouched and never trip the breaker.
	for i := 0; i < 5; i++ {
		status, body := getJSON(t, gw.URL+"/api/v1/search/missing")
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "not found", body["error"])
	}
	require.Equal(t, int64(5), downstream.calls.Load())
}

func TestGatewayUnknownRoute(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	gw := newGateway(t, downstream, 5)

	resp, err := http.Get(gw.URL + "/api/v1/billing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, int64(0), downstream.calls.Load())
}

func TestGatewayHealthzReportsBreakers(t *testing.T) {
	t.Parallel()
	downstream := newCountingDownstream(t)
	gw := newGateway(t, downstream, 5)

	status, body := getJSON(t, gw.URL+"/healthz")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", body["status"])

	breakers, ok := body["breakers"].([]any)
	require.True(t, ok)
	require.Len(t, breakers, 1)
	snapshot := breakers[0].(map[string]any)
	require.Equal(t, "search", snapshot["name"])
	require.Equal(t, "closed", snapshot["state"])
}
