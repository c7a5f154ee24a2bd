package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	configloader "github.com/foxseedlab/voxqueue/external/config"
	"github.com/foxseedlab/voxqueue/external/httpapi"
	recognizerimpl "github.com/foxseedlab/voxqueue/external/recognizer"
	repositoryimpl "github.com/foxseedlab/voxqueue/external/repository"
	"github.com/foxseedlab/voxqueue/internal/config"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runServer(injector)
}

func mustLoadConfig() *config.ServerConfig {
	cfg, err := configloader.LoadServer()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.ServerConfig) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.ServerConfig) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	recognizerimpl.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	server, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	if err := server.Start(); err != nil {
		slog.Error("http server start failed", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	if err := server.Stop(context.Background()); err != nil {
		slog.Error("http server stop failed", "error", err)
	}
	if report := injector.Shutdown(); report != nil && len(report.Errors) > 0 {
		slog.Error("dependency shutdown failed", "error", report)
	}
}
