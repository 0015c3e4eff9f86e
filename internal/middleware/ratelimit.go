package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateMax    = 10
	loginRateWindow = time.Minute
)

// LoginRateLimit throttles credential-bearing endpoints per client IP
// with a Redis counter window. Redis errors fail open: a broken limiter
// must never lock users out.
func LoginRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / int64(loginRateWindow.Seconds())
		key := fmt.Sprintf("auth:rate_limit:%s:%d", ip, window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, loginRateWindow+time.Second)
		}

		if count > loginRateMax {
			c.Header("Retry-After", "60")
			response.Error(c, http.StatusTooManyRequests, "Too Many Requests", "slow down")
			return
		}
		c.Next()
	}
}
