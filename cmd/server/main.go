package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/blog_platform/internal/cache"
	"github.com/Skotchmaster/blog_platform/internal/config"
	"github.com/Skotchmaster/blog_platform/internal/db"
	"github.com/Skotchmaster/blog_platform/internal/handlers"
	"github.com/Skotchmaster/blog_platform/internal/hash"
	"github.com/Skotchmaster/blog_platform/internal/logging"
	authmw "github.com/Skotchmaster/blog_platform/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/blog_platform/internal/middleware/logging"
	"github.com/Skotchmaster/blog_platform/internal/mykafka"
	"github.com/Skotchmaster/blog_platform/internal/repo"
	"github.com/Skotchmaster/blog_platform/internal/service"
	"github.com/Skotchmaster/blog_platform/internal/tokens"
	httpserver "github.com/Skotchmaster/blog_platform/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		log.Fatal(err)
	}

	store := repo.NewGormRepo(gdb)
	accessCache := cache.NewRedisCache(rdb, cfg.JWTAccessTTL)
	prod := mykafka.NewProducer(cfg.KafkaBrokers)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			Svc:      service.NewAuthService(store, store, accessCache, codec, hash.NewHasher(cfg.BcryptCost)),
			Producer: prod,
			Topic:    cfg.KafkaTopic,
		},
		UsersHandler: &handlers.UsersHandler{
			Svc:      service.NewUsersService(store, store, accessCache),
			Producer: prod,
			Topic:    cfg.KafkaTopic,
		},
		Guard: authmw.NewGuard(codec, accessCache, store, store),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis_close_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
