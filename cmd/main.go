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

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/logger/pkg/logger"
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
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	msgRepo := postgres.NewMessageRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)
	sessRepo := postgres.NewSessionRepository(db.Pool)

	// --- services ---
	authSvc := service.NewAuthService(userRepo, sessRepo, cfg.SessionTTL(), security.BcryptConfig{
		Cost:      cfg.Auth.BcryptCost,
		MinLength: cfg.Auth.MinPassword,
	}, nil)
	dirSvc := service.NewDirectoryService(roomRepo)
	msgSvc := service.NewMessageService(msgRepo)

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	connSession := ws.NewConnectionSession(authSvc, authSvc)
	wsServer := ws.NewServer(hub, connSession, dirSvc, msgSvc, cfg.Auth.SessionCookie)

	// --- HTTP ---
	handler := httpx.NewHandler(authSvc, dirSvc, msgSvc, cfg.Auth.SessionCookie)
	router := httpx.NewRouter(handler, connSession, wsServer, cfg.HTTP.AllowedOrigins)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- session sweep ---
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				authSvc.SweepExpired(sweepCtx)
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// --- run ---
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

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
