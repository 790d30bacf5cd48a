package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = "up|down|redo|status|to|create|validate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", migrate.CmdUp, "migration command: "+usage)
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		fail(context.Background(), logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(ctx, logg, "create migration", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	case "validate":
		files, err := migrate.Scan(*dir)
		if err != nil {
			fail(ctx, logg, "validate migrations", err)
		}
		logg.Info(logg.WithField(ctx, "files", len(files)), "migrations valid")
		return
	}

	if cfg.DB.IsSQLite() {
		fail(ctx, logg, "open database", fmt.Errorf("goose migrations target postgres; sqlite schemas are applied by the services on boot"))
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "open database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "open database", err)
	}
	runner, err := migrate.NewRunner(sqlDB, *dir)
	if err != nil {
		fail(ctx, logg, "prepare runner", err)
	}

	switch *cmd {
	case migrate.CmdUp, migrate.CmdDown, migrate.CmdRedo, migrate.CmdStatus:
		err = runner.Exec(ctx, *cmd)
	case "to":
		var target int64
		if target, err = migrate.ParseVersion(*version); err == nil {
			err = runner.To(ctx, target)
		}
	default:
		err = fmt.Errorf("unknown command %q, want %s", *cmd, usage)
	}
	if err != nil {
		fail(ctx, logg, *cmd, err)
	}

	current, err := runner.Current()
	if err != nil {
		fail(ctx, logg, "read version", err)
	}
	logg.Info(logg.WithField(ctx, "version", current), "migrate finished")
}

func fail(ctx context.Context, logg *logger.Logger, step string, err error) {
	logg.Error(ctx, "migrate failed: "+step, err)
	os.Exit(1)
}
