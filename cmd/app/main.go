package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tutoring-service/internal/config"
	"tutoring-service/internal/http-server/handlers/students/reconcile"
	"tutoring-service/internal/http-server/handlers/students/settle"
	"tutoring-service/internal/http-server/handlers/students/settlement"
	tutoringCancel "tutoring-service/internal/http-server/handlers/tutoring/cancel"
	tutoringCharge "tutoring-service/internal/http-server/handlers/tutoring/charge"
	tutoringComplete "tutoring-service/internal/http-server/handlers/tutoring/complete"
	tutoringCreate "tutoring-service/internal/http-server/handlers/tutoring/create"
	tutoringDelete "tutoring-service/internal/http-server/handlers/tutoring/delete"
	tutoringGet "tutoring-service/internal/http-server/handlers/tutoring/get"
	tutoringReserve "tutoring-service/internal/http-server/handlers/tutoring/reserve"
	tutoringRestore "tutoring-service/internal/http-server/handlers/tutoring/restore"
	tutoringSchedule "tutoring-service/internal/http-server/handlers/tutoring/schedule"
	tutoringSync "tutoring-service/internal/http-server/handlers/tutoring/syncattendance"
	tutoringUndo "tutoring-service/internal/http-server/handlers/tutoring/undo"
	tutoringUpdate "tutoring-service/internal/http-server/handlers/tutoring/update"
	"tutoring-service/internal/lock"
	"tutoring-service/internal/metrics"
	svc "tutoring-service/internal/service"
	"tutoring-service/internal/storage/memory"
	"tutoring-service/internal/storage/mongo"
	"tutoring-service/internal/storage/postgres"
	"tutoring-service/pkg/handlers/slogpretty"
	"tutoring-service/pkg/middleware/mwLogger"
	"tutoring-service/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type backend interface {
	svc.Backend
	io.Closer
}

type locker interface {
	lock.Locker
	io.Closer
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting tutoring service", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	ctx := context.Background()

	storage, err := setupStorage(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to init storage", slog.String("driver", cfg.Storage.Driver), sl.Err(err))
		os.Exit(1)
	}

	recordLock, err := setupLock(cfg)
	if err != nil {
		log.Error("Failed to init record lock", slog.String("driver", cfg.Lock.Driver), sl.Err(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := svc.NewService(storage, recordLock, log,
		svc.WithMetrics(metrics.New(registry)),
		svc.WithLockTTL(cfg.Lock.TTL),
		svc.WithPricePerSession(cfg.Settlement.Price()),
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Tutoring records
	router.Post("/tutoring", tutoringCreate.New(log, service))
	router.Get("/tutoring", tutoringGet.New(log, service))
	router.Get("/tutoring/{id}", tutoringGet.New(log, service))
	router.Patch("/tutoring/{id}", tutoringUpdate.New(log, service))
	router.Delete("/tutoring/{id}", tutoringDelete.New(log, service))
	router.Post("/tutoring/{id}/restore", tutoringRestore.New(log, service))

	// Transitions
	router.Post("/tutoring/{id}/schedule", tutoringSchedule.New(log, service))
	router.Post("/tutoring/{id}/complete", tutoringComplete.New(log, service))
	router.Post("/tutoring/{id}/charge", tutoringCharge.New(log, service))
	router.Post("/tutoring/{id}/reserve", tutoringReserve.New(log, service))
	router.Post("/tutoring/{id}/undo", tutoringUndo.New(log, service))
	router.Post("/tutoring/{id}/cancel", tutoringCancel.New(log, service))
	router.Post("/tutoring/{id}/sync-attendance", tutoringSync.New(log, service))

	// Settlement
	router.Get("/students/{id}/settlement", settlement.New(log, service))
	router.Post("/students/{id}/settle", settle.New(log, service))
	router.Post("/students/{id}/reconcile-debt", reconcile.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := recordLock.Close(); err != nil {
		log.Error("Failed to close locker", sl.Err(err))
	} else {
		log.Info("Locker closed")
	}

	log.Info("Shutdown finished, server stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (backend, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		storage, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.AutoMigrate {
			log.Info("Applying migrations")
			if err := storage.Migrate(ctx); err != nil {
				_ = storage.Close()
				return nil, err
			}
		}
		return storage, nil
	case "mongo":
		return mongo.New(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case "memory":
		log.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func setupLock(cfg *config.Config) (locker, error) {
	if cfg.Lock.Driver == "local" {
		return lock.NewLocalLock(), nil
	}
	return lock.NewRedisLock(cfg.Lock.RedisAddr)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
