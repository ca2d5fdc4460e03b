// Package server wires the store, cache, services and handlers into the
// HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"todo-notes/internal/cache"
	"todo-notes/internal/config"
	"todo-notes/internal/handlers"
	"todo-notes/internal/logging"
	"todo-notes/internal/middleware"
	"todo-notes/internal/monitoring"
	"todo-notes/internal/schema"
	"todo-notes/internal/services"
	"todo-notes/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
)

type Server struct {
	cfg     *config.Config
	log     logging.Logger
	store   *Store
	cache   cache.Cache
	handler http.Handler
}

// New builds the router over an open store. The server owns the store from
// here on and closes it in Close.
func New(cfg *config.Config, store *Store, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{cfg: cfg, log: log, store: store}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(5 * time.Second)
	extra := map[string]monitoring.StatsFunc{}

	health.Register("store", func(context.Context) error { return store.Health() })
	if store.stats != nil {
		extra["database"] = store.stats
	}

	var todoService services.TodoService = services.NewTodoService(store.Repo, cfg.Store.QueryTimeout, log)
	if cfg.Cache.Enabled {
		var l2 *cache.RedisCache
		if cfg.Cache.UseRedis {
			l2 = cache.NewRedisCache(cache.CacheConfigFromConfig(cfg))
		}
		mlc := cache.NewMultiLevelCache(l2, cache.WithLogger(log))
		cached := services.NewCachedTodoService(todoService, mlc, cfg.Cache.TodoTTL, cfg.Cache.PageTTL, log)

		s.cache = mlc
		todoService = cached
		health.Register("cache", func(context.Context) error { return mlc.Health() })
		extra["cache"] = cached.GetCacheStats
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RecoveryWithLog(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	r.GET("/health", monitoring.HealthHandler(health, metrics))
	r.GET("/ready", monitoring.ReadinessHandler(health))
	r.GET("/live", monitoring.LivenessHandler(metrics))
	r.GET("/metrics", monitoring.MetricsHandler(metrics, extra))

	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
			Burst:             cfg.RateLimit.BurstSize,
			IdleTTL:           cfg.RateLimit.CleanupInterval,
		})
		api.Use(middleware.RateLimit(limiter))
		extra["rate_limit"] = func() map[string]interface{} {
			return map[string]interface{}{"clients": limiter.Clients()}
		}
	}

	todoHandler := handlers.NewTodoHandler(todoService, schema.MustNew(), log)
	todoHandler.Register(api.Group("/todos"))

	r.NoRoute(s.noRoute(http.FileServerFS(web.Static())))

	s.handler = gzhttp.GzipHandler(r)
	return s
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "If-None-Match", middleware.RequestIDHeader},
		ExposeHeaders: []string{"ETag", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

// noRoute serves the browser UI for GET requests outside /api and a JSON
// 404 for everything else.
func (s *Server) noRoute(files http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		isRead := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead
		if s.cfg.Server.ServeUI && isRead && path != "/api" && !strings.HasPrefix(path, "/api/") {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Route not found"})
	}
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	s.log.Info(ctx, "http server listening", "address", ln.Addr().String(), "store", s.store.Driver)

	serveDone := make(chan error, 1)
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.log.Info(context.Background(), "http server shutting down")
	case err := <-serveDone:
		return err
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := hs.Shutdown(shutdownCtx); err != nil {
		s.log.Error(shutdownCtx, "http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.log.Info(shutdownCtx, "http server stopped")
	return nil
}

// Close releases the cache and the store.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

// Run opens the store, serves on the configured address until ctx is
// cancelled and then shuts everything down.
func Run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	srv := New(cfg, store, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Close(closeCtx); err != nil {
			log.Error(closeCtx, "shutdown cleanup failed", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.GetServerAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GetServerAddr(), err)
	}

	return srv.Serve(ctx, ln)
}
