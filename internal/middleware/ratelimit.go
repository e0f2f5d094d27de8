package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

// RateLimit caps requests per client IP at limit within each window. Counter
// failures let the request through.
func RateLimit(store KeyStore, limit int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		bucket := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("newsroom:rate_limit:%s:%s:%d", c.FullPath(), ip, bucket)

		count, err := store.Incr(ctx, key)
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			_ = store.Expire(ctx, key, window+time.Second)
		}

		if count > limit {
			log.Warn("rate limited", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())+1))
			response.Error(c, http.StatusTooManyRequests, "Trop de tentatives, réessayez dans un instant")
			return
		}

		c.Next()
	}
}
