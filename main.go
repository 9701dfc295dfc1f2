package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"heroQuestAPI/handlers"
	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/clock"
	"heroQuestAPI/internal/config"
	"heroQuestAPI/internal/lock"
	"heroQuestAPI/internal/logger"
	"heroQuestAPI/internal/store"
	"heroQuestAPI/middleware"
	"heroQuestAPI/services"
)

const maxRateLimitVisitors = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	clerk.SetKey(cfg.ClerkSecretKey)
	zl.Info("Clerk initialized")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		zl.Info("closing store")
		st.Close()
	}()

	locker, closeLocker, err := openLocker(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeLocker()

	registry, err := badge.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("load badge catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt := services.Runtime{
		Store:    st,
		Clock:    clock.System{},
		Location: cfg.FamilyTimezone,
		Locker:   locker,
		Metrics:  services.NewMetrics(reg),
		Logger:   zl,
	}

	badgeService := services.NewBadgeService(rt, registry)
	if err := badgeService.Sync(ctx); err != nil {
		return fmt.Errorf("sync badge catalog: %w", err)
	}
	zl.Info("badge catalog synced", zap.Int("badges", registry.Len()))

	progressionService := services.NewProgressionService(rt, badgeService)
	questService := services.NewQuestService(rt, progressionService)
	heroService := services.NewHeroService(rt, badgeService)
	taskService := services.NewTaskService(rt)

	heroHandler := handlers.NewHeroHandler(heroService, badgeService, progressionService, questService, zl)
	questHandler := handlers.NewQuestHandler(questService, zl)
	familyHandler := handlers.NewFamilyHandler(heroService, badgeService, zl)
	taskHandler := handlers.NewTaskHandler(taskService, zl)

	limiter, err := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, maxRateLimitVisitors)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}
	httpMetrics := middleware.NewHTTPMetrics(reg)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(httpMetrics.Monitor(zl))

	standardRouter.Handle("/metrics",
		middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "store unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "heroquest-api"}`))
	}).Methods("GET")

	protected := standardRouter.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuth(zl))
	handlers.RegisterRoutes(protected, heroHandler, questHandler, familyHandler, taskHandler)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Idempotency-Key"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "Retry-After"}),
		gorillaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-sigChan:
		zl.Info("got signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown error", zap.Error(err))
	}
	zl.Info("server shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, store.DefaultPoolConfig(), store.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	zl.Info("connected to postgres")
	return pg, nil
}

// openLocker prefers Redis when configured so replicas serialize the same
// hero; a single instance gets by with the in-process mutex.
func openLocker(ctx context.Context, cfg *config.Config, zl *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	zl.Info("using redis hero lock")
	return lock.NewRedisLocker(client, 0), func() { client.Close() }, nil
}
