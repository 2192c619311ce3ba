package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nisHanRam/Placify-Backend/internal/app/storage"
	httpx "github.com/nisHanRam/Placify-Backend/internal/http"
	"github.com/nisHanRam/Placify-Backend/internal/service/place"
	"github.com/nisHanRam/Placify-Backend/internal/service/user"
	"github.com/nisHanRam/Placify-Backend/internal/ws"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
	"github.com/nisHanRam/Placify-Backend/pkg/logger"
)

func main() {
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := config.ReadFile(path); err != nil {
			logger.New("api", logger.ParseLevel("info")).Error("failed to read config file", "path", path, "error", err)
			os.Exit(1)
		}
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	if err := backend.Prepare(ctx, cfg.AutoMigrate); err != nil {
		log.Error("database preparation failed", "backend", backend.Name, "error", err)
		os.Exit(1)
	}
	if backend.Name == config.StoreMemory {
		log.Warn("no database configured, using in-memory store; data is lost on restart")
	}

	hub := ws.NewHub()
	defer hub.Close()

	placeSvc := place.New(backend.Store, hub, log, cfg)
	userSvc := user.New(backend.Store, log, cfg)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, placeSvc, userSvc, hub, limiter, httpx.Options{
		RequireAuth:    cfg.RequireAuth,
		RequestTimeout: cfg.RequestTimeout,
		DBHealth:       backend.Health,
	})
	defer router.Close()

	var handler http.Handler = router
	if cfg.BasePath != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.BasePath+"/", http.StripPrefix(cfg.BasePath, router))
		mux.Handle("/", router)
		handler = mux
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "backend", backend.Name, "base_path", cfg.BasePath, "require_auth", cfg.RequireAuth)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
