package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"go.uber.org/zap"
)

// Recovery turns a panic into a JSON 500 and logs it
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		response.Internal(c)
	})
}
