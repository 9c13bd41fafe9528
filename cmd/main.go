package main

import (
	"AthleteAPI/internal/auth"
	"AthleteAPI/internal/config"
	"AthleteAPI/internal/db"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/realtime"
	"AthleteAPI/internal/router"
	"AthleteAPI/internal/store"
	"AthleteAPI/internal/upstream"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(".", cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	if err := run(cfg); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.PostgresDSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	pool, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("postgres_connected", nil)

	// Initialize registry
	registry, err := model.InitRegistry(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("registry init: %w", err)
	}
	logger.Info("models_initialized", map[string]any{"count": len(registry.Models())})

	// Redis шарит sensor_update между инстансами; без него relay работает локально
	var bus realtime.Bus = realtime.NewLocalBus()
	if cfg.RedisAddr != "" {
		rdb, err := db.OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		bus = realtime.NewRedisBus(rdb)
		logger.Info("redis_connected", map[string]any{"addr": cfg.RedisAddr})
	} else {
		logger.Warn("redis_disabled", map[string]any{"relay": "local"})
	}
	hub := realtime.NewHub(bus, cfg.CORS)
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		validator, err = auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			return fmt.Errorf("jwt validator: %w", err)
		}
	} else {
		logger.Warn("auth_disabled", nil)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Config:   cfg,
			Registry: registry,
			Store:    store.New(pool),
			JWT:      validator,
			Auth:     upstream.NewSupabaseAuth(cfg.Upstream),
			AI:       upstream.NewAIClient(cfg.Upstream),
			Hub:      hub,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		log.Printf("🚀 Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	hubExited, stopErr := awaitStop(ctx, serverErr, hubDone)
	if stopErr != nil {
		logger.Error("server_failed", map[string]any{"error": stopErr.Error()})
	}

	logger.Info("server_shutdown", nil)
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("shutdown: %w", err)
	}
	if !hubExited {
		if err := <-hubDone; err != nil && !errors.Is(err, context.Canceled) && stopErr == nil {
			stopErr = fmt.Errorf("hub: %w", err)
		}
	}
	return stopErr
}

// awaitStop blocks until a signal arrives, the server fails or the hub exits
// on its own. A hub that stops before ctx is done is a failure: /ws would
// refuse every client from then on.
func awaitStop(ctx context.Context, serverErr, hubDone <-chan error) (hubExited bool, err error) {
	select {
	case err := <-serverErr:
		return false, err
	case err := <-hubDone:
		if ctx.Err() != nil {
			return true, nil
		}
		if err == nil {
			err = errors.New("sensor relay closed")
		}
		return true, fmt.Errorf("hub: %w", err)
	case <-ctx.Done():
		return false, nil
	}
}
