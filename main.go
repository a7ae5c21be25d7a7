package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"satupapan/config"
	"satupapan/config/database"
	"satupapan/internal/presence"
	"satupapan/internal/whiteboard/repository"
	"satupapan/internal/whiteboard/service"
	"satupapan/pkg/logger"
	"satupapan/router"
	"satupapan/socket"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Sugar.Warn("JWT_SECRET is not set; every authenticated request will be rejected")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewWhiteboardRepository(db)
	svc := service.NewWhiteboardService(repo, nil)

	// The Hub is the central component that manages all rooms; the service is its authorizer and
	// the repository seeds new rooms.
	hub := socket.NewHub(socket.Options{
		ReadBufferSize:   cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  cfg.WebSocket.WriteBufferSize,
		SendBufferSize:   cfg.WebSocket.SendBufferSize,
		PingInterval:     cfg.WebSocket.PingInterval,
		WriteTimeout:     cfg.WebSocket.WriteTimeout,
		MaxMessageSize:   cfg.WebSocket.MaxMessageSize,
		SnapshotInterval: cfg.Room.SnapshotInterval,
	}, svc, repo)
	svc.Hub = hub

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = presence.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Sugar.Errorf("Redis unavailable, presence mirror disabled: %v", err)
		} else {
			mirror := presence.NewMirror(rdb, cfg.Redis.TTL)
			hub.SetPresenceSink(mirror)
			go mirror.Run(ctx)
		}
	}

	go hub.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.Setup(svc, hub, cfg.Auth.JWTSecret, cfg.Server.AllowOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Sugar.Infof("Go Backend listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Errorf("HTTP server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if rdb != nil {
		err = multierr.Append(err, rdb.Close())
	}
	err = multierr.Append(err, db.Close())
	if err != nil {
		logger.Sugar.Errorf("Shutdown finished with errors: %v", err)
		return
	}
	logger.Sugar.Info("Shutdown complete")
}
