package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
)

// gooseCommands pass straight through to goose and need a database.
var gooseCommands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"down":      true,
	"redo":      true,
	"status":    true,
}

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|up-by-one|down|redo|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory; empty uses the embedded set (create/validate default to "+migrate.DefaultDir+")")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "resource not working: config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate done")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	sourceDir := opts.dir
	if sourceDir == "" {
		sourceDir = migrate.DefaultDir
	}

	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(sourceDir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(sourceDir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	case "version":
		if opts.version == "" {
			return errors.New("missing -version")
		}
	default:
		if !gooseCommands[opts.cmd] {
			return fmt.Errorf("unknown -cmd value %q", opts.cmd)
		}
	}

	return withDB(ctx, cfg, logg, func(sqlDB *sql.DB) error {
		if opts.cmd == "version" {
			return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
		}
		return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	})
}

func withDB(ctx context.Context, cfg *config.Config, logg *logger.Logger, fn func(*sql.DB) error) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	logg.Info(ctx, "migrate ready")
	return fn(sqlDB)
}
