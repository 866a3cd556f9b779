package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
)

// Metrics 记录请求数与耗时，路径使用路由模板避免标签膨胀
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.APIRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.APIDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
