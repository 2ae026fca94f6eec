// Package server exposes the scraping service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"igproxy/pkg/config"
	"igproxy/pkg/logger"
	"igproxy/pkg/scraper"
	"igproxy/pkg/session"
	"igproxy/pkg/stats"
)

// Server wires the scraping service, session storage and stats counters
// behind a Gin engine.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	service  *scraper.Service
	sessions *session.Manager
	stats    *stats.Counter
	logger   logger.Logger
}

// New constructs the server with all routes registered
func New(cfg *config.Config, service *scraper.Service, sessions *session.Manager, counter *stats.Counter, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		service:  service,
		sessions: sessions,
		stats:    counter,
		logger:   log,
	}
	s.registerRoutes()
	return s
}

// Engine returns the underlying Gin engine. Used by tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	s.engine.GET("/auth", s.handleAuth)
	s.engine.POST("/auth/challenge", s.handleAuthChallenge)

	s.engine.GET("/highlights/:profile", s.handleHighlights)
	s.engine.GET("/highlights/:profile/:index", s.handleHighlights)
	s.engine.GET("/posts/:profile", s.handlePosts)
	s.engine.GET("/profile_contents/:profile", s.handleProfileContents)

	s.engine.GET("/stats", s.handleStats)
	s.engine.DELETE("/reset_stats", s.handleResetStats)

	s.engine.GET("/session", s.handleDownloadSession)
	s.engine.GET("/download_session", s.handleDownloadSession)
	s.engine.GET("/session/delete", s.handleDeleteSession)
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
