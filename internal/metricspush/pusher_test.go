package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "job_runs_total", Help: "runs"}, []string{"job"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "lag_seconds", Help: "lag"})
	registry.MustRegister(runs, lag)
	runs.WithLabelValues("overdue_sweep").Add(2)
	lag.Observe(0.5)
	return registry
}

func TestBuildRemoteWriteSeriesSkipsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 1)
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "job_runs_total"},
		{Name: "job", Value: "overdue_sweep"},
	}, series[0].Labels)
	assert.Equal(t, 2.0, series[0].Samples[0].Value)
	assert.Equal(t, int64(1000), series[0].Samples[0].Timestamp)
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var got prompb.WriteRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))
	assert.Equal(t, "Bearer secret", auth)
	require.Len(t, got.Timeseries, 1)
}

func TestRemoteWritePusherReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "cicilan-scheduler", map[string]string{"environment": "test", "": "x"})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/cicilan-scheduler"))
	assert.Contains(t, path, "/environment/test")
}

func TestNewPusherSelectsExporter(t *testing.T) {
	base := config.Config{AppName: "cicilan", Environment: "test"}
	assert.Nil(t, NewPusher(base, zap.NewNop()))

	cfg := base
	cfg.Metrics = config.MetricsPushConfig{Enabled: true, Exporter: ExporterPushgateway, Endpoint: "http://pgw:9091"}
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics = config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics = config.MetricsPushConfig{Enabled: true, Exporter: ExporterOTLP, Endpoint: "https://collector:4317"}
	otlp, ok := NewPusher(cfg, zap.NewNop()).(*OTLPPusher)
	require.True(t, ok)
	assert.Equal(t, "collector:4317", otlp.address)
	assert.True(t, otlp.secure)

	cfg.Metrics = config.MetricsPushConfig{Enabled: true, Exporter: "statsd", Endpoint: "x"}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}

func TestBuildOTLPMetrics(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	metrics := buildOTLPMetrics(families, 42)
	require.Len(t, metrics, 1)
	sum := metrics[0].GetSum()
	require.NotNil(t, sum)
	assert.True(t, sum.IsMonotonic)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 2.0, sum.DataPoints[0].GetAsDouble())
	assert.Equal(t, "job", sum.DataPoints[0].Attributes[0].Key)
}
