package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/retry"
)

// Azure Cosmos DB integration metric names.
const (
	metricRequestUnits = "azure.cosmosdb.total_request_units"
	metricRequests     = "azure.cosmosdb.total_requests"
	metricLatency      = "azure.cosmosdb.server_side_latency"

	rollupSeconds = 3600
)

// metricsQuerier is the slice of the Datadog metrics API the provider uses.
type metricsQuerier interface {
	QueryMetrics(ctx context.Context, from int64, to int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error)
}

// Datadog reads Cosmos DB throughput metrics from the Datadog Azure
// integration over a lookback window.
type Datadog struct {
	api      metricsQuerier
	ctx      context.Context
	account  string
	lookback time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ Provider = (*Datadog)(nil)

// NewDatadog builds a provider authenticated with the configured keys.
func NewDatadog(parent context.Context, cfg config.MetricsConfig, logger *zap.Logger) *Datadog {
	ctx := context.WithValue(parent, dd.ContextAPIKeys, map[string]dd.APIKey{
		"apiKeyAuth": {Key: cfg.DatadogAPIKey},
		"appKeyAuth": {Key: cfg.DatadogAppKey},
	})
	if cfg.DatadogSite != "" {
		ctx = context.WithValue(ctx, dd.ContextServerVariables, map[string]string{"site": cfg.DatadogSite})
	}
	client := dd.NewAPIClient(dd.NewConfiguration())

	return newDatadog(ctx, datadogV1.NewMetricsApi(client), cfg, logger)
}

func newDatadog(ctx context.Context, api metricsQuerier, cfg config.MetricsConfig, logger *zap.Logger) *Datadog {
	lookback := time.Duration(cfg.LookbackHours) * time.Hour
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &Datadog{
		api:      api,
		ctx:      ctx,
		account:  cfg.Account,
		lookback: lookback,
		now:      time.Now,
		logger:   logger.Named("metrics.datadog"),
	}
}

// ContainerMetrics aggregates request units, request counts, throttled
// (429) requests and latency for container over the lookback window.
func (d *Datadog) ContainerMetrics(ctx context.Context, container string) (*models.PerformanceMetrics, error) {
	to := d.now().Unix()
	from := to - int64(d.lookback/time.Second)
	scope := d.scope(container)

	ru, err := d.query(ctx, from, to, fmt.Sprintf("sum:%s{%s}.rollup(sum, %d)", metricRequestUnits, scope, rollupSeconds))
	if err != nil {
		return nil, err
	}
	requests, err := d.query(ctx, from, to, fmt.Sprintf("sum:%s{%s}.rollup(sum, %d)", metricRequests, scope, rollupSeconds))
	if err != nil {
		return nil, err
	}
	throttled, err := d.query(ctx, from, to, fmt.Sprintf("sum:%s{%s,statuscode:429}.rollup(sum, %d)", metricRequests, scope, rollupSeconds))
	if err != nil {
		return nil, err
	}
	latency, err := d.query(ctx, from, to, fmt.Sprintf("avg:%s{%s}", metricLatency, scope))
	if err != nil {
		return nil, err
	}

	if len(ru) == 0 && len(requests) == 0 {
		d.logger.Debug("No Datadog metrics for container", zap.String("container", container))
		return nil, nil
	}

	window := float64(to - from)
	totalRequests := sum(requests)
	m := &models.PerformanceMetrics{
		AvgRUPerSecond:   sum(ru) / window,
		PeakRUPerSecond:  maxOf(ru) / rollupSeconds,
		AvgLatencyMillis: mean(latency),
		TotalRequests:    int64(totalRequests),
	}
	if totalRequests > 0 {
		m.ThrottledRate = min(1, sum(throttled)/totalRequests)
	}
	return m, nil
}

func (d *Datadog) scope(container string) string {
	tags := []string{"collectionname:" + tagValue(container)}
	if d.account != "" {
		tags = append(tags, "name:"+tagValue(d.account))
	}
	return strings.Join(tags, ",")
}

// query returns every non-null point value of every series.
func (d *Datadog) query(ctx context.Context, from, to int64, q string) ([]float64, error) {
	resp, err := retry.DoWithResultIfRetryable(ctx, retry.DefaultConfig(), func() (datadogV1.MetricsQueryResponse, error) {
		resp, httpResp, err := d.api.QueryMetrics(d.requestContext(ctx), from, to, q)
		if err != nil {
			if httpResp != nil {
				return resp, fmt.Errorf("datadog query failed with status %d: %w", httpResp.StatusCode, err)
			}
			return resp, fmt.Errorf("datadog query failed: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	var out []float64
	for _, series := range resp.GetSeries() {
		for _, point := range series.GetPointlist() {
			if len(point) < 2 || point[1] == nil {
				continue
			}
			out = append(out, *point[1])
		}
	}
	return out, nil
}

// requestContext carries the auth values of the provider context while
// honouring cancellation of the caller.
func (d *Datadog) requestContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, dd.ContextAPIKeys, d.ctx.Value(dd.ContextAPIKeys))
	if v := d.ctx.Value(dd.ContextServerVariables); v != nil {
		ctx = context.WithValue(ctx, dd.ContextServerVariables, v)
	}
	return ctx
}

// tagValue lower-cases a value and replaces characters Datadog tags reject.
func tagValue(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.', r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func maxOf(values []float64) float64 {
	out := 0.0
	for _, v := range values {
		out = max(out, v)
	}
	return out
}
