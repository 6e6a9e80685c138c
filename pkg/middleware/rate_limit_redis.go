package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/odfmonitor/odf-monitor/pkg/logger"
	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by all replicas.
// Each window allows floor(rps*windowSeconds)+burst requests per client IP.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	return redisRateLimit(client, rps, burst, window, time.Now)
}

func redisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration, now func() time.Time) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		bucket := now().Unix() / windowSeconds
		key := fmt.Sprintf("rl:%s:%d", clientKey(c), bucket)

		cnt, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warnf("rate limit: redis incr failed: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream_unavailable", "message": "rate limit check failed"})
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, key, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if cnt > allowed {
			tooManyRequests(c, "redis", strconv.FormatInt(windowSeconds, 10))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
