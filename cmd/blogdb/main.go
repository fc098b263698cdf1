package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-mizu/xmodel"
	"github.com/go-mizu/xmodel/internal/blog"
	"github.com/go-mizu/xmodel/internal/blog/migrations"
)

type options struct {
	configPath string
	migrate    bool
	grantAdmin string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to the database config file (yaml, toml or json)")
	flag.BoolVar(&opts.migrate, "migrate", true, "Apply pending migrations on start")
	flag.StringVar(&opts.grantAdmin, "grant-admin", "", "Email of a registered user to make an admin")
	debug := flag.Bool("debug", false, "Also log default value materialization")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, logger, opts)
	stop()
	if err != nil {
		logger.Error("blogdb failed", "error", err)
		os.Exit(1)
	}
}

// run owns the pool, so it is closed on every return path.
func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := xmodel.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool, err := xmodel.Open(ctx, cfg, xmodel.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening %s pool: %w", cfg.Driver, err)
	}
	defer pool.Close()

	if opts.migrate {
		if err := migrations.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		v, err := migrations.Version(ctx, pool)
		if err != nil {
			return fmt.Errorf("reading migration version: %w", err)
		}
		logger.Info("Database migrated", "version", v)
	}

	if opts.grantAdmin != "" {
		svc := blog.NewService(pool, nil, blog.WithLogger(logger))
		if err := svc.GrantAdmin(ctx, opts.grantAdmin); err != nil {
			return fmt.Errorf("granting admin to %s: %w", opts.grantAdmin, err)
		}
	}

	for _, s := range blog.Schemas() {
		n, err := s.FindNumber(ctx, pool, "count(*)", "")
		if err != nil {
			return fmt.Errorf("counting rows of %s: %w", s.Table(), err)
		}
		logger.Info("Table rows", "table", s.Table(), "count", n)
	}
	stats := pool.Stats()
	logger.Info("Pool stats", "open", stats.OpenConnections, "in_use", stats.InUse, "idle", stats.Idle)
	return nil
}
