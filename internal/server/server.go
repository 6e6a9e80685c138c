package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/odfmonitor/odf-monitor/internal/config"
	"github.com/odfmonitor/odf-monitor/internal/database"
	"github.com/odfmonitor/odf-monitor/internal/document/compare"
	"github.com/odfmonitor/odf-monitor/internal/document/discipline"
	"github.com/odfmonitor/odf-monitor/internal/document/reprocess"
	"github.com/odfmonitor/odf-monitor/internal/document/repository"
	"github.com/odfmonitor/odf-monitor/internal/document/service"
	"github.com/odfmonitor/odf-monitor/pkg/logger"
	"github.com/odfmonitor/odf-monitor/pkg/metrics"
)

const (
	mongoConnectAttempts = 5
	mongoConnectBackoff  = time.Second
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// App is the assembled process: configuration, connections and the document service.
type App struct {
	Config   *config.Config
	Service  service.Service
	Mongo    *mongo.Client
	Redis    *redis.Client
	Registry *prometheus.Registry
	// Checks back the readiness endpoint, keyed by dependency name.
	Checks map[string]Check

	startedAt time.Time
}

// NewRegistry returns a registry carrying the application and runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Build connects to MongoDB (and Redis when configured) and wires the service.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.Infof("connecting to MongoDB at %s", database.DescribeURI(cfg.MongoDB.URI, cfg.MongoDB.Database))
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts, mongoConnectBackoff)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Mongo: client, Registry: NewRegistry(), Checks: map[string]Check{}, startedAt: time.Now()}
	app.Checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

	db := client.Database(cfg.MongoDB.Database)
	docs := repository.NewMongoRepo(db.Collection(cfg.MongoDB.DocumentsCollection))
	refs := repository.NewMongoReferenceRepo(db.Collection(cfg.MongoDB.DisciplinesCollection))
	if err := docs.EnsureIndexes(ctx); err != nil {
		logger.Warnf("document indexes not ensured: %v", err)
	}
	if err := refs.EnsureIndexes(ctx); err != nil {
		logger.Warnf("discipline indexes not ensured: %v", err)
	}

	if cfg.Redis.Enabled() {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			needed := cfg.Disciplines.CacheBackend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis)
			if needed {
				_ = rc.Close()
				app.Close(context.Background())
				return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr(), err)
			}
			logger.Warnf("failed to connect to Redis (%s): %v; continuing without it", cfg.Redis.Addr(), err)
			_ = rc.Close()
		} else {
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
			app.Redis = rc
			app.Checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
		}
	}

	var cache discipline.Cache
	if cfg.Disciplines.CacheBackend == "redis" {
		cache = discipline.NewRedisCache(app.Redis, "odf:disciplines", cfg.Disciplines.CacheTTL)
	} else {
		cache = discipline.NewMemoryCache(cfg.Disciplines.CacheTTL, discipline.SystemClock{})
	}

	mode, err := compare.ParseMode(cfg.Compare.Mode)
	if err != nil {
		app.Close(context.Background())
		return nil, err
	}
	logger.Infof("compare mode: %s, discipline cache: %s (ttl %s)", mode, cfg.Disciplines.CacheBackend, cfg.Disciplines.CacheTTL)

	app.Service = service.New(service.Deps{
		Docs:        docs,
		Resolver:    discipline.NewResolver(docs, refs, cache),
		Comparator:  compare.New(mode, docs),
		Reprocessor: reprocess.NewClient(cfg.Reprocess.BackendURL, cfg.Reprocess.AllowedHosts, cfg.Reprocess.Timeout),
	})
	return app, nil
}

// Close releases the connections opened by Build.
func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Warnf("mongo disconnect: %v", err)
		}
	}
}

// Run serves the router until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, app *App) error {
	cfg := app.Config
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      NewRouter(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting odf-monitor on %s (prefix /%s)", srv.Addr, cfg.Server.GlobalPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
