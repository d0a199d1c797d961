package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"tutoring-service/internal/config"
	"tutoring-service/internal/storage/postgres"
	"tutoring-service/pkg/sl"
)

// Usage: migrate [up|down|status|redo|version] [args...]
func main() {
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.MustLoad()
	if cfg.Storage.Driver != "postgres" {
		log.Error("Migrations only apply to the postgres driver", slog.String("driver", cfg.Storage.Driver))
		os.Exit(1)
	}

	storage, err := postgres.New(cfg.Storage.PostgresDSN)
	if err != nil {
		log.Error("Failed to connect", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	if err := postgres.RunMigrations(context.Background(), storage.DB(), command, args...); err != nil {
		log.Error("Migration failed", slog.String("command", command), sl.Err(err))
		storage.Close()
		os.Exit(1)
	}

	log.Info("Migration finished", slog.String("command", command))
}
