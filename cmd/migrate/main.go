package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/logger"
	"github.com/contactalia/contactalia-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty runs the set embedded in the binary")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	// create and validate only touch files.
	switch *cmd {
	case "create":
		if *name == "" {
			exit(ctx, logg, "missing -name for create", nil)
		}
		path, err := migrate.CreateSQLMigration(dirOrDefault(*dir), *name)
		if err != nil {
			exit(ctx, logg, "create migration failed", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		fsys, err := migrate.Source(*dir)
		if err == nil {
			err = migrate.ValidateFS(fsys)
		}
		if err != nil {
			exit(ctx, logg, "migration validation failed", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		exit(ctx, logg, "failed to load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exit(ctx, logg, "failed to bootstrap database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exit(ctx, logg, "failed to extract sql.DB", err)
	}
	migrator, err := migrate.NewMigrator(sqlDB, *dir, logg)
	if err != nil {
		exit(ctx, logg, "failed to open migrations", err)
	}

	switch *cmd {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "version":
		if *version == "" {
			exit(ctx, logg, "missing -version for version command", nil)
		}
		err = migrator.To(ctx, *version)
	case "status":
		err = printStatus(ctx, migrator)
	default:
		exit(ctx, logg, "unknown -cmd value: "+*cmd, nil)
	}
	if err != nil {
		exit(ctx, logg, "migrate "+*cmd+" failed", err)
	}
}

func printStatus(ctx context.Context, migrator *migrate.Migrator) error {
	rows, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, row := range rows {
		state, at := "pending", "-"
		if row.Applied {
			state, at = "applied", row.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Version, state, at, row.Path)
	}
	return w.Flush()
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exit(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
