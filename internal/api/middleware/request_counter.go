package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestRecorder 请求计数
type RequestRecorder interface {
	RecordRequest()
}

// RequestCounterMiddleware 请求计数中间件
func RequestCounterMiddleware(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		recorder.RecordRequest()
		c.Next()
	}
}

// RequestLogger 使用 zap 记录访问日志
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
