package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const slogLoggerKey = "slogLogger"

// 探活与指标抓取频率高，只在失败时记录。
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// SlogLoggerMiddleware 为每个请求注入带 correlation_id 的 logger，结束时按状态码分级输出。
func SlogLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		c.Set(slogLoggerKey, logger.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		))

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if _, quiet := quietPaths[route]; quiet && status < http.StatusBadRequest {
			return
		}

		// 取最终的 logger：鉴权中间件可能已追加 user_id。
		LoggerFromContext(c).Log(c.Request.Context(), levelForStatus(status), "request completed",
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// withLoggerAttrs 为当前请求的 logger 追加字段，后续中间件与 handler 都会带上。
func withLoggerAttrs(c *gin.Context, attrs ...any) {
	c.Set(slogLoggerKey, LoggerFromContext(c).With(attrs...))
}

// LoggerFromContext 返回上下文中的 slog.Logger。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(slogLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
