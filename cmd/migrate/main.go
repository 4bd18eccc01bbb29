// Package main provides the database migration runner. It can also seed the
// definition tables from a content directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	seedContent := flag.String("seed-content", "", "content directory to import into the definition tables after migrating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if !cfg.Database.Enabled {
		log.Fatalf("database.enabled is false in %s", *configPath)
	}

	state, err := postgres.Migrate(cfg.Database.DSN(), *dir, postgres.Direction(*direction), *steps)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if state.Changed {
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, state.Version, state.Dirty, time.Since(start))
	} else {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", state.Version, state.Dirty, time.Since(start))
	}

	if *seedContent == "" {
		return
	}
	if err := seed(cfg, *seedContent); err != nil {
		log.Fatalf("seeding content: %v", err)
	}
}

func seed(cfg config.Config, contentDir string) error {
	start := time.Now()
	logger, err := observability.NewLogger(cfg.Logging, "migrate")
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg, err := ruleset.LoadDirectory(contentDir, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	classes, weapons, err := postgres.NewDefinitionRepository(pool.DB(), logger).Import(ctx, reg)
	if err != nil {
		return err
	}
	logger.Info("content seeded",
		zap.String("dir", contentDir),
		zap.Int("classes", classes),
		zap.Int("weapons", weapons),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
