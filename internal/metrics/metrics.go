// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordCartOperation(op string)
	RecordCartMerge()
	RecordCartPersistFailure()
	RecordOrderPlaced(total int64)
	RecordHTTPStatus(statusCode int)
	RecordActiveCartSessions(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cartOps            *prometheus.CounterVec
	cartMerges         prometheus.Counter
	cartPersistFail    prometheus.Counter
	ordersPlaced       prometheus.Counter
	orderValue         prometheus.Histogram
	httpStatus         *prometheus.CounterVec
	activeCartSessions prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodhub_cart_operations_total",
			Help: "カート操作の種類別合計数",
		}, []string{"operation"}),
		cartMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodhub_cart_merges_total",
			Help: "ログイン時のゲストカートマージ実行回数",
		}),
		cartPersistFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodhub_cart_persist_fail_total",
			Help: "カート永続化の書き込み失敗数",
		}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodhub_orders_placed_total",
			Help: "確定された注文の合計数",
		}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foodhub_order_value_ugx",
			Help:    "注文金額の分布（UGX）",
			Buckets: []float64{5000, 10000, 25000, 50000, 100000, 250000, 500000},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		activeCartSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foodhub_active_cart_sessions",
			Help: "メモリ上でアクティブなカートセッション数",
		}),
	}

	reg.MustRegister(
		c.cartOps,
		c.cartMerges,
		c.cartPersistFail,
		c.ordersPlaced,
		c.orderValue,
		c.httpStatus,
		c.activeCartSessions,
	)

	return c
}

// RecordCartOperation はカート操作（add, set_quantity, remove, clear）を記録する。
func (c *Collector) RecordCartOperation(op string) {
	c.cartOps.WithLabelValues(op).Inc()
}

// RecordCartMerge はゲストカートのマージ実行を記録する。
func (c *Collector) RecordCartMerge() {
	c.cartMerges.Inc()
}

// RecordCartPersistFailure はカート永続化の書き込み失敗を記録する。
func (c *Collector) RecordCartPersistFailure() {
	c.cartPersistFail.Inc()
}

// RecordOrderPlaced は注文確定と注文金額を記録する。
func (c *Collector) RecordOrderPlaced(total int64) {
	c.ordersPlaced.Inc()
	c.orderValue.Observe(float64(total))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordActiveCartSessions はアクティブなカートセッション数を記録する。
func (c *Collector) RecordActiveCartSessions(count int) {
	c.activeCartSessions.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
