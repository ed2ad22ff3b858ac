package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sitedaddy/daisy-dog/config"
	"github.com/sitedaddy/daisy-dog/handlers"
	"github.com/sitedaddy/daisy-dog/metrics"
	"github.com/sitedaddy/daisy-dog/middleware"
	"github.com/sitedaddy/daisy-dog/services"
)

const shutdownTimeout = 10 * time.Second

// Server is the places gateway: the API routes, the static fallback and the
// optional admin listener.
type Server struct {
	cfg    *config.AppConfig
	log    *zap.Logger
	engine *gin.Engine
	admin  *gin.Engine
}

// New wires a server for cfg. The upstream client is bounded by
// cfg.Places.Timeout.
func New(cfg *config.AppConfig, log *zap.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
	}

	places := services.NewPlacesService(cfg.Places, nil)
	s.engine = s.setupRoutes(handlers.NewPlacesHandler(places, cfg.Places, log))
	s.admin = s.setupAdminRoutes()
	return s
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AdminHandler returns the handler for the metrics and health listener.
func (s *Server) AdminHandler() http.Handler {
	return s.admin
}

func (s *Server) setupRoutes(places *handlers.PlacesHandler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = false
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.log))
	r.Use(middleware.Recovery(s.log))

	open := s.cfg.CORS.OpenCORS()
	if open {
		r.Use(middleware.Preflight())
	} else {
		r.Use(middleware.RestrictedCORS(s.cfg.CORS.AllowedOrigins))
	}

	api := r.Group("/api")
	if open {
		api.Use(middleware.AllowAnyOrigin())
	}
	{
		api.GET("/reviews", places.GetReviews)
		api.GET("/place", places.GetPlace)
	}

	var static *handlers.StaticHandler
	if s.cfg.ServesStatic() {
		static = handlers.NewStaticHandler(s.cfg.App.StaticDir, s.log)
	}
	r.NoRoute(fallback(static))

	return r
}

// fallback handles everything the route table does not: static files (or
// 404) for GET, an empty 200 for a preflight the CORS layer let through, and
// 501 for any other method.
func fallback(static *handlers.StaticHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet:
			if static != nil {
				static.Serve(c)
				return
			}
			c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		case http.MethodOptions:
			c.Status(http.StatusOK)
		default:
			c.String(http.StatusNotImplemented, "Unsupported method (%s)", c.Request.Method)
		}
	}
}

func (s *Server) setupAdminRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", handlers.Health(s.cfg))
	return r
}

// Run serves until ctx is cancelled or a listener fails, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:              s.cfg.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.Places.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}}
	if s.cfg.Metrics.Addr != "" {
		servers = append(servers, &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           s.admin,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.log.Info("Starting listener", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down gateway")
	case runErr = <-errCh:
		s.log.Error("Listener failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
		}
	}
	return runErr
}
