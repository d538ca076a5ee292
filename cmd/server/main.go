package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/engagement-api/internal/api"
	"github.com/engagement-api/internal/config"
	"github.com/engagement-api/internal/database"
	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/idempotency"
	"github.com/engagement-api/internal/metrics"
	"github.com/engagement-api/internal/repository"
	"github.com/engagement-api/internal/service"
	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// A missing .env is fine; the environment may already be set
	envErr := godotenv.Load()

	log := logger.New()
	log.Info().Msg("Starting engagement API server...")
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("Failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Log.Level != "" {
		log = log.Level(logger.ParseLevel(cfg.Log.Level))
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	store, closeStore := openStore(cfg, log)
	defer closeStore()

	idem, closeIdem := openIdempotency(cfg, log)
	defer closeIdem()

	repos := repository.New(store, cfg.Store.Root)
	services := service.NewServices(repos, session.ContextProvider{}, cfg, log)

	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()
	go services.Reconcile.StartProcessor(processorCtx)

	router := api.NewRouter(services, idem, cfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	services.Reconcile.StopProcessor()

	log.Info().Msg("Server exited gracefully")
}

// openStore connects the configured document store backend
func openStore(cfg *config.Config, log zerolog.Logger) (docstore.Store, func()) {
	if cfg.Store.Backend == "memory" {
		log.Warn().Msg("Using in-memory document store; data is lost on restart")
		return docstore.NewInstrumented(docstore.NewMemoryStore(), "memory", cfg.Store.Root), func() {}
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	store := docstore.NewInstrumented(docstore.NewPostgresStore(db.DB), "postgres", cfg.Store.Root)
	return store, func() { db.Close() }
}

// openIdempotency uses Redis when configured and an in-process store otherwise
func openIdempotency(cfg *config.Config, log zerolog.Logger) (idempotency.Store, func()) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set; idempotency keys kept in memory")
		mem := idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL)
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					mem.Sweep()
				}
			}
		}()
		return mem, func() { close(done) }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return idempotency.NewRedisStore(client, cfg.Redis.IdempotencyTTL), func() { client.Close() }
}
