package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/api/middleware"
	"portfolioSaaS/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "Unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// statusOf 将错误类型映射为 HTTP 状态码。
func statusOf(kind errcode.Kind) int {
	switch kind {
	case errcode.Validation:
		return http.StatusBadRequest
	case errcode.Unauthorized:
		return http.StatusUnauthorized
	case errcode.QuotaExceeded:
		return http.StatusPaymentRequired
	case errcode.NotFound:
		return http.StatusNotFound
	case errcode.Conflict:
		return http.StatusConflict
	case errcode.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError 按错误类型输出响应；内部错误只记录日志，不向客户端暴露原因。
func WriteError(c *gin.Context, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		e = errcode.Wrap(err, "internal error")
	}
	status := statusOf(e.Kind)

	if e.Kind == errcode.Internal {
		middleware.LoggerFromContext(c).Error("request failed",
			slog.String("message", e.Message),
			slog.Any("error", err),
		)
		Internal(c, e.Message)
		return
	}

	if e.Kind == errcode.RateLimited && e.RetryAfter > 0 {
		seconds := int64(math.Ceil(e.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(e.RetryAfter).UnixMilli(), 10))
	}

	body := gin.H{"error": e.Message, "code": e.Kind.String()}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	c.JSON(status, body)
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func userEmailFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserEmailKey)
}
