package clock

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// fetchFn 返回 (ok, offset, lastSync, lastError)
type fetchFn func() (bool, time.Duration, time.Time, error)

type clockCollector struct {
	fetch fetchFn

	offsetSeconds   *prometheus.Desc
	lastSyncSeconds *prometheus.Desc
	healthy         *prometheus.Desc
}

func (c *clockCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetSeconds
	ch <- c.lastSyncSeconds
	ch <- c.healthy
}

func (c *clockCollector) Collect(ch chan<- prometheus.Metric) {
	ok, offset, lastSync, _ := c.fetch()
	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, offset.Seconds())
	ch <- prometheus.MustNewConstMetric(c.lastSyncSeconds, prometheus.GaugeValue, float64(lastSync.Unix()))
	var healthy float64
	if ok {
		healthy = 1
	}
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy)
}

// NewClockCollector 创建时钟指标采集器
func NewClockCollector(fetch fetchFn) prometheus.Collector {
	return &clockCollector{
		fetch: fetch,
		offsetSeconds: prometheus.NewDesc(
			"p2efarm_clock_offset_seconds",
			"Positive means local time is behind NTP time",
			nil, nil,
		),
		lastSyncSeconds: prometheus.NewDesc(
			"p2efarm_clock_last_sync_unix",
			"Last successful sync Unix timestamp",
			nil, nil,
		),
		healthy: prometheus.NewDesc(
			"p2efarm_clock_healthy",
			"1 if clock is healthy, otherwise 0",
			nil, nil,
		),
	}
}

// RegisterClockMetrics 注册时钟指标；非 NTP 时钟不注册
func RegisterClockMetrics(reg prometheus.Registerer, c interface{}) error {
	ntpClock, ok := c.(*NTPClock)
	if !ok {
		return nil
	}
	return reg.Register(NewClockCollector(ntpClock.Health))
}
