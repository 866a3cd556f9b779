package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/types"
)

// SessionHandler 状态、连接与告警端点
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(ctrl Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

// RegisterRoutes 注册路由
func (h *SessionHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/state", h.State)
	r.POST("/connect", h.Connect)
	r.POST("/disconnect", h.Disconnect)
	r.DELETE("/alerts/:id", h.DismissAlert)
	r.POST("/watch-asset", h.WatchAsset)
}

// State GET /api/v1/state
func (h *SessionHandler) State(c *gin.Context) {
	ok(c, http.StatusOK, h.ctrl.State())
}

// Connect POST /api/v1/connect
func (h *SessionHandler) Connect(c *gin.Context) {
	if err := h.ctrl.Connect(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, h.ctrl.State())
}

// Disconnect POST /api/v1/disconnect
func (h *SessionHandler) Disconnect(c *gin.Context) {
	h.ctrl.Disconnect()
	ok(c, http.StatusOK, h.ctrl.State())
}

// DismissAlert DELETE /api/v1/alerts/:id
func (h *SessionHandler) DismissAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, types.ErrInvalidArgument, "invalid alert id")
		return
	}
	if !h.ctrl.DismissAlert(id) {
		fail(c, http.StatusNotFound, types.ErrNotFound, "alert not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// WatchAsset POST /api/v1/watch-asset
func (h *SessionHandler) WatchAsset(c *gin.Context) {
	if err := h.ctrl.WatchToken(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"added": true})
}
