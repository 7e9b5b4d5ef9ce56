// Package server exposes cache namespaces over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/epochly/go-kvcache/cache"
	"github.com/epochly/go-kvcache/health"
	"github.com/epochly/go-kvcache/logger"
	"github.com/epochly/go-kvcache/ratelimit"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const DefaultAddress = ":8080"

// Options configures a Server. Cache and Logger are required; Limiter,
// Health and Metrics are optional.
type Options struct {
	Address         string
	Cache           cache.Cache
	Limiter         *ratelimit.Limiter
	Health          *health.Checker
	Metrics         *cache.Metrics
	Logger          logger.Logger
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	echo     *echo.Echo
	address  string
	srv      *http.Server
	shutdown time.Duration
	cache    cache.Cache
	health   *health.Checker
	logger   logger.Logger
}

// New builds the HTTP surface:
//
//	GET    /health       health summary, 503 when unhealthy
//	GET    /metrics      Prometheus metrics
//	GET    /stats        cache stats
//	GET    /cache/:key   read a value
//	PUT    /cache/:key   store {"value": ..., "ttl": "90s"}
//	DELETE /cache/:key   delete a value
//	POST   /cache/:key/incr
//
// The /cache routes are rate limited when a Limiter is given.
func New(opts Options) *Server {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Health == nil {
		opts.Health = health.NewChecker()
		opts.Health.Register("general", opts.Cache)
	}
	log := opts.Logger.WithPrefix("[http]")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	s := &Server{
		echo:     e,
		address:  opts.Address,
		shutdown: opts.ShutdownTimeout,
		cache:    opts.Cache,
		health:   opts.Health,
		logger:   log,
	}

	e.GET("/health", s.getHealth)
	e.GET("/stats", s.getStats)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
	var mws []echo.MiddlewareFunc
	if opts.Limiter != nil {
		mws = append(mws, ratelimit.Middleware(opts.Limiter, ratelimit.MiddlewareConfig{}))
	}
	g := e.Group("/cache", mws...)
	g.GET("/:key", s.getKey)
	g.PUT("/:key", s.putKey)
	g.DELETE("/:key", s.deleteKey)
	g.POST("/:key/incr", s.incrKey)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.address,
		Handler:      s.echo,
		ReadTimeout:  s.echo.Server.ReadTimeout,
		WriteTimeout: s.echo.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("listening on %s", s.address)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		s.logger.Info("shutting down")
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if str, ok := he.Message.(string); ok {
			msg = str
		} else if e, ok := he.Message.(error); ok {
			msg = e.Error()
		}
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]any{"error": msg})
	}
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}
