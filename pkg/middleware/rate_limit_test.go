package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

func serve(r *gin.Engine, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ip != "" {
		req.RemoteAddr = ip + ":1234"
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	require.Equal(t, http.StatusOK, serve(r, "/ok", "").Code)
	require.Equal(t, http.StatusOK, serve(r, "/ok", "").Code)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/limited", "").Code)
	w := serve(r, "/limited", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	// one token refills every two seconds at 0.5 rps
	time.Sleep(2100 * time.Millisecond)
	require.Equal(t, http.StatusOK, serve(r, "/limited", "").Code)
}

func TestRateLimitMiddleware_KeysByClientIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/u", "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/u", "10.0.0.1").Code)
	require.Equal(t, http.StatusOK, serve(r, "/u", "10.0.0.2").Code)
}

func TestRateLimitMiddleware_InstancesAreIndependent(t *testing.T) {
	a, b := gin.New(), gin.New()
	a.Use(RateLimitMiddleware(0.5, 1))
	b.Use(RateLimitMiddleware(0.5, 1))
	a.GET("/x", func(c *gin.Context) {})
	b.GET("/x", func(c *gin.Context) {})

	require.Equal(t, http.StatusOK, serve(a, "/x", "").Code)
	require.Equal(t, http.StatusOK, serve(b, "/x", "").Code)
}
