package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/p2efarm/internal/api/http/types"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

// Recovery 捕获 handler panic，返回统一的 500 错误
func Recovery(logger log.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		logger.Errorf("HTTP handler panic path=%s request_id=%s: %v", c.Request.URL.Path, GetRequestID(c), recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			types.NewErrorResponse(types.ErrInternal, "internal server error", nil).WithRequestID(GetRequestID(c)))
	})
}
