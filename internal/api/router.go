package api

import (
	"net/http"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/api/handlers"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/api/middleware"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/events"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/smstoken"
	"github.com/Mieluoxxx/siriusx-sms-validator/internal/stats"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceName 健康检查返回的服务名
const ServiceName = "siriusx-sms-validator"

// Dependencies 路由依赖
type Dependencies struct {
	DB      *gorm.DB
	Service *smstoken.Service
	Events  *events.Service
	Stats   *stats.TokenStats
	Logger  *zap.Logger
}

// SetupRouter 配置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}
	router.Use(middleware.RequestCounterMiddleware(deps.Stats))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": ServiceName,
		})
	})

	apiGroup := router.Group("/api")
	{
		setupTokenRoutes(apiGroup, deps.Service)

		statsHandler := handlers.NewStatsHandler(deps.DB, deps.Stats, deps.Events)
		apiGroup.GET("/stats", statsHandler.GetStats)
		apiGroup.GET("/events", statsHandler.ListEvents)
	}

	return router
}

// setupTokenRoutes 配置短信 Token 路由
func setupTokenRoutes(group *gin.RouterGroup, service *smstoken.Service) {
	handler := handlers.NewTokenHandler(service)

	tokens := group.Group("/sms-tokens")
	{
		tokens.POST("", handler.IssueToken)
		tokens.GET("", handler.ListTokens)
		tokens.POST("/validate", handler.ValidateToken)
		tokens.GET("/count", handler.CountTokens)
		tokens.POST("/cleanup", handler.CleanupTokens)
	}
}
