// Package main runs a single headless arena match and prints its result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

const (
	// globalScriptsDir holds hooks for classes that do not name their own script.
	globalScriptsDir = "global"
	dbHealthInterval = 30 * time.Second
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	p1Class := flag.String("class", "", "player one class ID")
	p1Weapon := flag.String("weapon", "", "player one weapon ID")
	p2Class := flag.String("p2-class", "", "player two class ID; empty = random")
	p2Weapon := flag.String("p2-weapon", "", "player two weapon ID; empty = random")
	seed := flag.Uint64("seed", 0, "random seed; 0 = match.seed from config, or crypto randomness")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.Match.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging, "arena")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var rnd dice.Source = dice.NewCryptoSource()
	if cfg.Match.Seed != 0 {
		rnd = dice.NewSeededSource(cfg.Match.Seed)
	}
	rnd = dice.NewLoggedSource(rnd, logger.Named("dice"))

	var pool *postgres.Pool
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	}

	src, err := contentSource(cfg, pool, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}

	sel := match.Selection{
		P1: match.Loadout{ClassID: *p1Class, WeaponID: *p1Weapon},
		P2: match.Loadout{ClassID: *p2Class, WeaponID: *p2Weapon},
	}
	fighters, err := match.Resolve(ctx, src, sel, rnd)
	if err != nil {
		logger.Fatal("resolving selection", zap.Error(err))
	}

	opts := match.Options{Random: rnd, Logger: logger}
	if cfg.Scripting.Root != "" {
		mgr, err := loadScripts(cfg.Scripting, fighters, rnd, logger)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer mgr.Close()
		opts.Scripts = mgr
	}
	if pool != nil {
		opts.Results = postgres.NewResultRepository(pool.DB())
	}

	m, err := match.New(cfg.Match, fighters, opts)
	if err != nil {
		logger.Fatal("creating match", zap.Error(err))
	}

	logger.Info("arena initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("realtime", cfg.Match.Realtime),
		zap.Bool("persist", opts.Results != nil),
	)

	var (
		result match.Result
		runErr error
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("match", &server.FuncService{
		StartFn: func() error {
			result, runErr = m.Run(runCtx)
			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			return runErr
		},
		StopFn: cancel,
	})
	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error { return pool.Watch(runCtx, dbHealthInterval) },
			StopFn:  cancel,
		})
	}
	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("match error", zap.Error(err))
	}
	if runErr != nil {
		logger.Warn("match ended early", zap.Error(runErr))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}
}

// contentSource picks the definition store named by content.source.
func contentSource(cfg config.Config, pool *postgres.Pool, logger *zap.Logger) (ruleset.Source, error) {
	if cfg.Content.Source == config.SourcePostgres {
		logger.Info("serving definitions from postgres")
		return postgres.NewDefinitionRepository(pool.DB(), logger), nil
	}
	loadStart := time.Now()
	reg, err := ruleset.LoadDirectory(cfg.Content.Dir, logger)
	if err != nil {
		return nil, err
	}
	classes, _ := reg.ClassIDs(context.Background())
	weapons, _ := reg.WeaponIDs(context.Background())
	logger.Info("loaded definitions",
		zap.String("dir", cfg.Content.Dir),
		zap.Int("classes", len(classes)),
		zap.Int("weapons", len(weapons)),
		zap.Duration("elapsed", time.Since(loadStart)),
	)
	return reg, nil
}

func loadScripts(cfg config.ScriptingConfig, fighters [2]match.Fighter, rnd dice.Source, logger *zap.Logger) (*scripting.Manager, error) {
	mgr := scripting.NewManager(rnd, logger.Named("lua"))
	global := filepath.Join(cfg.Root, globalScriptsDir)
	if err := mgr.LoadGlobal(global, cfg.InstructionLimit); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			mgr.Close()
			return nil, err
		}
	}
	if err := match.LoadScripts(mgr, cfg.Root, cfg.InstructionLimit, fighters); err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}
