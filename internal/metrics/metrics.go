// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フェッチャー、認可、HTTPハンドラーから利用する。
type MetricsCollector interface {
	RecordFetch(outcome string, duration time.Duration)
	RecordParseFailure()
	RecordHTTPStatus(statusCode int)
	RecordItemsRendered(count int)
	RecordReauthorization()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchOutcome  *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	parseFail     prometheus.Counter
	httpStatus    *prometheus.CounterVec
	itemsRendered prometheus.Counter
	reauth        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activityfeed_fetch_total",
			Help: "結果別のアクティビティ取得数",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "activityfeed_fetch_latency_seconds",
			Help:    "アクティビティ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activityfeed_parse_fail_total",
			Help: "不正なアクティビティ文書の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activityfeed_http_status_total",
			Help: "フィードエンドポイントのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		itemsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activityfeed_items_rendered_total",
			Help: "RSSに出力された項目の合計数",
		}),
		reauth: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activityfeed_reauthorizations_total",
			Help: "認証情報の再認可の合計数",
		}),
	}

	reg.MustRegister(
		c.fetchOutcome,
		c.fetchLatency,
		c.parseFail,
		c.httpStatus,
		c.itemsRendered,
		c.reauth,
	)

	return c
}

// RecordFetch はアクティビティ取得の結果とレイテンシを記録する。
func (c *Collector) RecordFetch(outcome string, duration time.Duration) {
	c.fetchOutcome.WithLabelValues(outcome).Inc()
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordParseFailure は不正な文書の検出を記録する。
func (c *Collector) RecordParseFailure() {
	c.parseFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordItemsRendered は出力された項目数を記録する。
func (c *Collector) RecordItemsRendered(count int) {
	c.itemsRendered.Add(float64(count))
}

// RecordReauthorization は再認可を記録する。
func (c *Collector) RecordReauthorization() {
	c.reauth.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
