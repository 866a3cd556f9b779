// Package metrics 定义控制器的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "p2efarm"

// 交易结果标签
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics 控制器指标集合
type Metrics struct {
	TxTotal         *prometheus.CounterVec   // kind, outcome
	TxDuration      *prometheus.HistogramVec // kind
	AlertsTotal     *prometheus.CounterVec   // severity
	RefreshDuration prometheus.Histogram
	RefreshErrors   prometheus.Counter
	SessionState    prometheus.Gauge // 0 断开，1 连接中，2 已连接
	Farms           prometheus.Gauge

	APIRequests *prometheus.CounterVec   // method, path, status
	APIDuration *prometheus.HistogramVec // method, path
}

// New 在 reg 上注册全部指标
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		TxTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "total",
			Help:      "Submitted farm actions by kind and outcome",
		}, []string{"kind", "outcome"}),

		TxDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "duration_seconds",
			Help:      "Time from submit to settle",
			Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 300},
		}, []string{"kind"}),

		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "total",
			Help:      "Alerts pushed by severity",
		}, []string{"severity"}),

		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "farmview",
			Name:      "refresh_duration_seconds",
			Help:      "Farm list refresh latency",
			Buckets:   prometheus.DefBuckets,
		}),

		RefreshErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "farmview",
			Name:      "refresh_errors_total",
			Help:      "Failed farm list refreshes",
		}),

		SessionState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "0 disconnected, 1 connecting, 2 connected",
		}),

		Farms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "farmview",
			Name:      "farms",
			Help:      "Farms owned by the connected account",
		}),

		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "path", "status"}),

		APIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "path"}),
	}
}

// NewUnregistered 使用独立注册表，测试和一次性命令使用
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
