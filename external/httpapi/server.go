package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/foxseedlab/voxqueue/internal/recognizer"
	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	maxMultipartMemory = 32 << 20
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	registry   *recognizer.Registry
	repo       repository.Repository
}

func NewServer(cfg *config.ServerConfig, registry *recognizer.Registry, repo repository.Repository) *Server {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = maxMultipartMemory
	engine.Use(recovery(), requestLogger(), cors(cfg.CORSAllowedOrigins), bodyLimit(cfg.MaxUploadBytes))

	s := &Server{
		engine:   engine,
		registry: registry,
		repo:     repo,
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	api := s.engine.Group("/api")
	api.POST("/transcribe", s.handleTranscribe)
	api.POST("/save-recording", s.handleSaveRecording)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listen address and serves in the background. It returns
// once the port is bound.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.httpServer.Addr, err)
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()
	slog.Info("http server started", "addr", listener.Addr().String())
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}
