package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/naseaoi/IceTV/internal/admin"
	"github.com/naseaoi/IceTV/internal/auth"
	"github.com/naseaoi/IceTV/internal/cache"
	"github.com/naseaoi/IceTV/internal/config"
	"github.com/naseaoi/IceTV/internal/server"
	"github.com/naseaoi/IceTV/internal/store"
	"github.com/naseaoi/IceTV/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use ICETV_* env vars")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var appStore store.Store
	switch cfg.StorageType {
	case config.StorageMemory:
		appStore = store.NewMemory()
		fmt.Fprintln(os.Stderr, "storage: memory (accounts disabled)")
	default:
		// Run migrations.
		absMigrations, err := filepath.Abs("migrations")
		if err != nil {
			absMigrations = "migrations"
		}
		if _, err := os.Stat(absMigrations); err != nil {
			if exe, e := os.Executable(); e == nil {
				absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
			}
		}
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		appStore = pg
	}

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCached(appStore, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching and cross-replica locks enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	adm := admin.NewService(appStore, rds, cfg.OwnerUsername)

	// Seed the config-origin sources from the subscription file, if any.
	if cfg.ConfigFilePath != "" {
		raw, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config file: %v\n", err)
			os.Exit(1)
		}
		if err := adm.Bootstrap(ctx, string(raw)); err != nil {
			fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
			os.Exit(1)
		}
	} else if err := adm.Bootstrap(ctx, ""); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	am := auth.NewManager(cfg.OwnerUsername, cfg.OwnerPassword, 0)
	orch := validate.NewOrchestrator(cfg.UserAgent, cfg.ProbeTimeout, cfg.ValidateCeiling)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(appStore, adm, am, orch, cfg)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
