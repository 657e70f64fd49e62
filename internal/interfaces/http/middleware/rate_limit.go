package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// RateLimit bounds per-caller request rates on the admission endpoints. The
// caller is identified by client IP. A limiter failure fails open: losing
// Redis must not block admission checks.
// RateLimit 对准入端点按调用方限流。调用方以客户端 IP 标识。
// 限流器故障时放行：Redis 失联不能阻塞准入检查。
func RateLimit(limiter service.RateLimitService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetAt, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn(c.Request.Context(), "Rate limiter failed, allowing request",
				logger.String("client_ip", c.ClientIP()),
				logger.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             string(constants.ErrCodeTemporarilyUnavailable),
				"error_description": "Too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}
