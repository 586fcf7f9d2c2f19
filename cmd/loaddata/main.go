// Command loaddata imports the tag and ingredient reference data from JSON
// files into the configured database. Rows that already exist are left
// alone, so the command can be re-run safely.
//
//	loaddata -ingredients data/ingredients.json -tags data/tags.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/sakif/foodgram/internal/config"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/service"
)

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "ingredients file; empty to skip")
	tagsPath := flag.String("tags", "data/tags.json", "tags file; empty to skip")
	flag.Parse()

	if err := run(*ingredientsPath, *tagsPath); err != nil {
		slog.Error("load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ingredientsPath, tagsPath string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(os.Stderr)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	catalog := service.NewCatalogService(db, logger)
	ctx := context.Background()

	if ingredientsPath != "" {
		var rows []service.IngredientInput
		if err := readJSON(ingredientsPath, &rows); err != nil {
			return err
		}
		res := catalog.ImportIngredients(ctx, rows)
		logger.Info("ingredients imported",
			slog.String("file", ingredientsPath),
			slog.Int("created", res.Created),
			slog.Int("existing", res.Existing),
			slog.Int("failed", res.Failed),
		)
	}

	if tagsPath != "" {
		var rows []service.TagInput
		if err := readJSON(tagsPath, &rows); err != nil {
			return err
		}
		res := catalog.ImportTags(ctx, rows)
		logger.Info("tags imported",
			slog.String("file", tagsPath),
			slog.Int("created", res.Created),
			slog.Int("existing", res.Existing),
			slog.Int("failed", res.Failed),
		)
	}

	return nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
