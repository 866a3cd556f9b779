package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/types"
	"github.com/weisyn/p2efarm/internal/app/version"
)

// HealthHandler 存活检查
type HealthHandler struct {
	ctrl      Controller
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(ctrl Controller) *HealthHandler {
	return &HealthHandler{ctrl: ctrl, startTime: time.Now()}
}

// RegisterRoutes 注册路由
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Session: h.ctrl.State().Session,
		Version: version.GetVersion(),
		Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
	})
}
