package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/booking"
	"github.com/liliang-cn/ragdesk/internal/api/chat"
	"github.com/liliang-cn/ragdesk/internal/api/documents"
	"github.com/liliang-cn/ragdesk/internal/api/health"
	"github.com/liliang-cn/ragdesk/internal/api/middleware"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIPrefix    string
	APIKey       string
	AllowOrigins []string
}

// Handlers groups the API handlers mounted by the router
type Handlers struct {
	Documents *documents.Handler
	Chat      *chat.Handler
	Booking   *booking.Handler
	Health    *health.Handler
}

// SetupRouter sets up the Gin router
func SetupRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.Abort(c, http.StatusNotFound, "NotFound", "route not found")
	})

	h.Health.RegisterRoutes(r)
	SetupStaticRoutes(r)

	v1 := r.Group(cfg.APIPrefix)
	v1.Use(middleware.Auth(cfg.APIKey))
	h.Documents.RegisterRoutes(v1)
	h.Chat.RegisterRoutes(v1)
	h.Booking.RegisterRoutes(v1)

	return r
}
