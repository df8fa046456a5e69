package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/db"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/migrate"
)

func main() {
	var (
		cmd     = flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
		dir     = flag.String("dir", migrate.DefaultDir, "goose migrations directory")
		name    = flag.String("name", "", "migration name (create only)")
		version = flag.String("version", "", "target version YYYYMMDDHHMMSS (version only)")
	)
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "loading config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// create and validate work on the filesystem alone.
	switch *cmd {
	case "create":
		if *name == "" {
			fatal(logg, "create", fmt.Errorf("missing -name"))
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fatal(logg, "creating migration", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fatal(logg, "validating migrations", err)
		}
		fmt.Println("migrations valid")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(logg, "connecting to database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fatal(logg, "extracting sql.DB", err)
	}

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			fatal(logg, "goose "+*cmd, err)
		}

	case "version":
		if *version == "" {
			fatal(logg, "version", fmt.Errorf("missing -version"))
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fatal(logg, "migrating to version", err)
		}

	default:
		fatal(logg, "flags", fmt.Errorf("unknown -cmd %q", *cmd))
	}
}

func fatal(logg *logger.Logger, what string, err error) {
	logg.Error(context.Background(), what, err)
	os.Exit(1)
}
