package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retroplay/netplay-service/config"
	"github.com/retroplay/netplay-service/internal/coordinator"
	"github.com/retroplay/netplay-service/internal/registry"
	httpx "github.com/retroplay/netplay-service/internal/transport/http"
	"github.com/retroplay/netplay-service/internal/transport/ws"
	"github.com/retroplay/netplay-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting netplay-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- core ---
	reg := registry.New()
	hub := coordinator.NewHub()
	coord := coordinator.New(reg, hub, cfg.Session.DefaultMaxPlayers)

	// --- reaper ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.RunReaper(ctx, cfg.ReapEvery())

	// --- HTTP + WS ---
	wsServer := ws.NewServer(coord, hub, cfg.PingEvery(), cfg.Session.SendBuffer)
	handler := httpx.NewHandler(coord)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
