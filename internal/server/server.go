// -------------------------------------------------------------------------------
// Server - HTTP Router and Lifecycle
//
// Project: KCloud / Author: Alex Freidah
//
// Wires the gin engine: operational endpoints (health, metrics) stay outside
// authentication and the database gate, while every song route passes through
// logging, rate limiting, auth and the gate in that order.
// -------------------------------------------------------------------------------

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nestorara/kcloud-music-api/internal/auth"
	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/storage"
)

const shutdownGrace = 30 * time.Second

// SongManager is the lifecycle surface the handlers call. Declared here so
// handler tests can substitute a double for the real manager.
type SongManager interface {
	ListSongs(ctx context.Context) ([]storage.Song, error)
	GetSong(ctx context.Context, id primitive.ObjectID) (*storage.Song, error)
	CreateSong(ctx context.Context, in *storage.SongInput) (*storage.Song, error)
	UpdateSong(ctx context.Context, id primitive.ObjectID, in *storage.SongInput) (*storage.Song, []storage.Warning, error)
	DeleteSong(ctx context.Context, id primitive.ObjectID) (*storage.Song, []storage.Warning, error)
	FileURL(ctx context.Context, id primitive.ObjectID, field storage.FileField) (string, error)
	DownloadFile(ctx context.Context, id primitive.ObjectID, field storage.FileField) (*storage.Song, *storage.DownloadResult, error)
}

// Server owns the HTTP surface.
type Server struct {
	engine        *gin.Engine
	manager       SongManager
	health        healthChecker
	listenAddr    string
	maxUploadSize int64
}

// New assembles the router. health gates the song routes; metrics and health
// endpoints are always reachable.
func New(cfg *config.Config, manager SongManager, health healthChecker) *Server {
	s := &Server{
		manager:       manager,
		health:        health,
		listenAddr:    cfg.Server.ListenAddr,
		maxUploadSize: cfg.Server.MaxUploadSize,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestMiddleware())

	engine.GET("/health", s.handleHealth)
	if cfg.Telemetry.Metrics.Enabled {
		engine.GET(cfg.Telemetry.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	songs := engine.Group("/songs")
	if cfg.RateLimit.Enabled {
		songs.Use(rateLimitMiddleware(cfg.RateLimit))
	}
	songs.Use(auth.Middleware(cfg.Auth.Token))
	songs.Use(dbGateMiddleware(health))
	{
		songs.GET("", s.handleList)
		songs.POST("", s.handleCreate)
		songs.GET("/:id", s.handleGet)
		songs.PATCH("/:id", s.handleUpdate)
		songs.DELETE("/:id", s.handleDelete)
		songs.GET("/getURL/:field/:id", s.handleFileURL)
		songs.GET("/download/:field/:id", s.handleDownload)
	}

	s.engine = engine
	return s
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// handleHealth reports liveness plus record store reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if !s.health.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
