package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odfmonitor/odf-monitor/handlers"
	"github.com/odfmonitor/odf-monitor/internal/document/handler"
	"github.com/odfmonitor/odf-monitor/pkg/middleware"
)

// NewRouter builds the HTTP surface: middleware, probes, metrics, swagger
// (development only) and the document routes.
func NewRouter(app *App) *gin.Engine {
	cfg := app.Config
	if app.startedAt.IsZero() {
		app.startedAt = time.Now()
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.CORS(cfg.Server.FrontendURL))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestMetrics())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && app.Redis != nil {
			r.Use(middleware.RedisRateLimitMiddleware(app.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		for name, check := range app.Checks {
			deps[name] = check(ctx) == nil
			ready = ready && deps[name]
		}
		status, body := http.StatusOK, "ready"
		if !ready {
			status, body = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": body, "deps": deps, "uptime": time.Since(app.startedAt).String()})
	})

	if app.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.IsDevelopment() {
		handlers.RegisterSwagger(r, cfg.Server.GlobalPrefix)
	}

	base := "/odf-documents"
	if cfg.Server.GlobalPrefix != "" {
		base = "/" + cfg.Server.GlobalPrefix + base
	}
	handler.RegisterDocumentRoutes(r.Group(base), app.Service)
	return r
}
