package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/rediskit/log"
)

// LoggerConfig 请求日志配置
type LoggerConfig struct {
	// SkipPaths 不记录的路径
	SkipPaths []string
	// Filter 返回 true 时不记录
	Filter func(c *gin.Context) bool
}

// DefaultLoggerConfig 默认不记录抓取频繁的 /metrics
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{SkipPaths: []string{"/metrics"}}
}

// GinLogger 请求日志中间件，5xx 记为 Error，其它记为 Debug
func GinLogger(logger *log.Logger, config LoggerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkip(c, config) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		}

		event = event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("uri", c.Request.RequestURI).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if requestID := c.Request.Header.Get("X-Request-Id"); requestID != "" {
			event = event.Str("request_id", requestID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}

		event.Msg("admin request")
	}
}

func shouldSkip(c *gin.Context, config LoggerConfig) bool {
	if config.Filter != nil {
		return config.Filter(c)
	}
	return slices.Contains(config.SkipPaths, c.Request.URL.Path)
}
