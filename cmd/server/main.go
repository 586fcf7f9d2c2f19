// Command server runs the foodgram HTTP API.
//
// Configuration comes from defaults, an optional config.yaml and the
// environment; a .env file in the working directory is loaded first when
// present. JWT_SECRET is required.
//
// STARTUP ORDER:
//  1. .env → process environment (godotenv never overrides variables that
//     are already set, so real environment values win).
//  2. config.Load layers defaults, the YAML file and the environment, then
//     validates every section. A bad value stops startup here with the
//     offending field named, instead of failing on the first request.
//  3. Logger from logging.level / logging.format.
//  4. Database: the directory is created, migrations run inside sqlite.New.
//  5. Image storage: "local" writes under storage.media_dir and is served
//     at storage.media_url; "s3" uploads to storage.s3_bucket.
//  6. server.Start blocks until SIGINT/SIGTERM.
//
// os.Exit is only called from main, after run has returned and closed
// whatever it opened.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/foodgram/internal/config"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/server"
	"github.com/sakif/foodgram/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if dir := filepath.Dir(cfg.Database.Path); cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	images, err := openStorage(context.Background(), cfg.Storage)
	if err != nil {
		db.Close()
		return err
	}

	srv, err := server.New(cfg, db, images, logger)
	if err != nil {
		db.Close()
		return err
	}

	// Start closes the database when it returns.
	return srv.Start()
}

func openStorage(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	switch sc.Backend {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          sc.S3Bucket,
			Region:          sc.S3Region,
			Endpoint:        sc.S3Endpoint,
			AccessKeyID:     sc.S3AccessKeyID,
			SecretAccessKey: sc.S3SecretAccessKey,
			PublicURL:       sc.MediaURL,
		})
		if err != nil {
			return nil, fmt.Errorf("opening s3 storage: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(sc.MediaDir, sc.MediaURL)
		if err != nil {
			return nil, fmt.Errorf("opening local storage: %w", err)
		}
		return store, nil
	}
}
