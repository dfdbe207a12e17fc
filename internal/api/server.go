// Package api assembles the dashboard web server: page routing, the dev
// proxy to the analytics backend, a client-backed /data gateway, health and
// metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"factorview/internal/api/handlers"
	"factorview/internal/api/middleware"
	"factorview/internal/config"
	"factorview/internal/data"
	"factorview/internal/logging"
	"factorview/internal/metrics"
	"factorview/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// Server is the dashboard web server.
type Server struct {
	cfg     *config.Config
	handler http.Handler
}

// NewServer builds the router from cfg. m may be nil.
func NewServer(cfg *config.Config, table *routes.Table, m *metrics.Metrics) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if table == nil {
		table = routes.Default
	}
	if m == nil {
		m = metrics.New()
	}
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	client, err := data.New(cfg.EffectiveBaseURL(), data.WithTimeout(cfg.API.Timeout.Std()), data.WithObserver(m))
	if err != nil {
		return nil, err
	}
	handlers.NewDataHandler(client).Register(router.Group("/data"))

	routeHandler := handlers.NewRouteHandler(table)
	router.GET("/routes", routeHandler.ListRoutes)
	router.GET("/routes/resolve", routeHandler.ResolveRoute)

	var proxy *handlers.ProxyHandler
	if cfg.Proxy.Target != "" {
		p, err := handlers.NewProxyHandler(cfg.Proxy.Target, cfg.Proxy.StripsPrefix())
		if err != nil {
			return nil, err
		}
		proxy = p
		router.Any(handlers.APIPrefix, proxy.Forward)
		router.Any(handlers.APIPrefix+"/*path", proxy.Forward)
		logging.Info().Str("target", cfg.Proxy.Target).Bool("strip_prefix", cfg.Proxy.StripsPrefix()).Msg("proxying /api")
	}

	pages := handlers.NewPageHandler(table, cfg.Server.StaticDir)
	if dir := pages.StaticDir(); dir != "" {
		router.Static("/assets", dir+"/assets")
		router.StaticFile("/favicon.ico", dir+"/favicon.ico")
		logging.Info().Str("static_dir", dir).Msg("serving static files")
	}
	router.NoRoute(pages.Serve)

	// Matches the analytics backend, which accepts any origin with credentials.
	c := cors.New(cors.Options{
		AllowOriginFunc:  func(string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return &Server{
		cfg:     cfg,
		handler: c.Handler(router),
	}, nil
}

// Handler returns the CORS-wrapped root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("starting web server")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logging.Info().Msg("shutting down web server")
	return srv.Shutdown(shutdownCtx)
}
