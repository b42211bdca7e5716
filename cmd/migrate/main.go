package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", string(migrate.CommandUp), "up|down|redo|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "directory holding the goose SQL files")
	flag.StringVar(&opts.name, "name", "", "migration name, required by -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS, required by -cmd=version")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()
	_ = godotenv.Load()

	// file-only commands run without config or a database
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exitf("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			exitf("create: %v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			exitf("validate: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := run(ctx, logg, cfg, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, cfg *config.Config, opts options) error {
	cmd, known := migrate.ParseCommand(opts.cmd)
	if !known && opts.cmd != "version" {
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
	if opts.cmd == "version" && opts.version == "" {
		return fmt.Errorf("-version is required for -cmd=version")
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap gorm handle: %w", err)
	}

	if opts.cmd == "version" {
		return migrate.MigrateToVersion(ctx, logg, sqlDB, opts.dir, opts.version)
	}
	return migrate.Run(ctx, logg, sqlDB, opts.dir, cmd)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", args...)
	os.Exit(1)
}
