package metrics

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
)

// ============================================================================
// Static
// ============================================================================

func TestParseStatic(t *testing.T) {
	s, err := ParseStatic([]byte(`
containers:
  orders:
    avg_ru_per_second: 120.5
    peak_ru_per_second: 900
    avg_latency_ms: 4.2
    throttled_rate: 0.02
    total_requests: 100000
`), zap.NewNop())
	require.NoError(t, err)

	m, err := s.ContainerMetrics(context.Background(), "orders")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 120.5, m.AvgRUPerSecond)
	assert.Equal(t, 0.02, m.ThrottledRate)
	assert.Equal(t, int64(100000), m.TotalRequests)

	m, err = s.ContainerMetrics(context.Background(), "users")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseStatic_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"rate above one", "containers:\n  a:\n    throttled_rate: 1.5\n"},
		{"negative", "containers:\n  a:\n    total_requests: -3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatic([]byte(tt.yaml), zap.NewNop())
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New(context.Background(), config.MetricsConfig{Type: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)

	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("containers: {}\n"), 0o600))
	p, err = New(context.Background(), config.MetricsConfig{Type: "static", File: path}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Static{}, p)

	p, err = New(context.Background(), config.MetricsConfig{Type: "datadog", DatadogAPIKey: "k", DatadogAppKey: "a"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Datadog{}, p)

	_, err = New(context.Background(), config.MetricsConfig{Type: "prometheus"}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

// ============================================================================
// Datadog
// ============================================================================

type fakeQuerier struct {
	respond func(query string) []float64
	queries []string
	err     error
}

func (f *fakeQuerier) QueryMetrics(ctx context.Context, from, to int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return datadogV1.MetricsQueryResponse{}, &http.Response{StatusCode: http.StatusForbidden}, f.err
	}
	var resp datadogV1.MetricsQueryResponse
	if f.respond == nil {
		return resp, nil, nil
	}
	values := f.respond(query)
	if values == nil {
		return resp, nil, nil
	}
	var points [][]*float64
	for i, v := range values {
		ts, val := float64(from+int64(i)*rollupSeconds)*1000, v
		points = append(points, []*float64{&ts, &val})
	}
	points = append(points, []*float64{nil, nil})
	resp.Series = append(resp.Series, datadogV1.MetricsQueryMetadata{Pointlist: points})
	return resp, nil, nil
}

func newTestDatadog(q metricsQuerier, lookbackHours int) *Datadog {
	d := newDatadog(context.Background(), q, config.MetricsConfig{Account: "Prod Account", LookbackHours: lookbackHours}, zap.NewNop())
	d.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return d
}

func TestDatadog_ContainerMetrics(t *testing.T) {
	q := &fakeQuerier{respond: func(query string) []float64 {
		switch {
		case strings.Contains(query, "statuscode:429"):
			return []float64{50}
		case strings.Contains(query, metricRequestUnits):
			return []float64{3600, 7200}
		case strings.Contains(query, metricRequests):
			return []float64{900, 100}
		case strings.Contains(query, metricLatency):
			return []float64{2, 4}
		}
		return nil
	}}

	m, err := newTestDatadog(q, 1).ContainerMetrics(context.Background(), "Orders")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.InDelta(t, 3.0, m.AvgRUPerSecond, 1e-9, "10800 RU over one hour")
	assert.InDelta(t, 2.0, m.PeakRUPerSecond, 1e-9)
	assert.InDelta(t, 3.0, m.AvgLatencyMillis, 1e-9)
	assert.InDelta(t, 0.05, m.ThrottledRate, 1e-9)
	assert.Equal(t, int64(1000), m.TotalRequests)

	require.Len(t, q.queries, 4)
	assert.Contains(t, q.queries[0], "collectionname:orders,name:prod_account")
	assert.Contains(t, q.queries[2], "statuscode:429")
}

func TestDatadog_NoSeries(t *testing.T) {
	m, err := newTestDatadog(&fakeQuerier{}, 24).ContainerMetrics(context.Background(), "orders")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDatadog_QueryError(t *testing.T) {
	_, err := newTestDatadog(&fakeQuerier{err: errors.New("forbidden")}, 24).ContainerMetrics(context.Background(), "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestTagValue(t *testing.T) {
	assert.Equal(t, "orders", tagValue("Orders"))
	assert.Equal(t, "my_container", tagValue("my container"))
	assert.Equal(t, "a-b.c", tagValue("a-b.c"))
}
