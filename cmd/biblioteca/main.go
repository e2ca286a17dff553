// biblioteca is the library-management server and its admin commands.
//
// COMMANDS:
//
//	biblioteca serve        start the web server
//	biblioteca init-db      create the schema and exit
//	biblioteca reconcile    repair book availability flags
//	biblioteca user add     create an account from the terminal
//
// Every command reads the same YAML config:
//
//	go run ./cmd/biblioteca serve --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/biblioteca serve
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/biblioteca/internal/config"
	"github.com/aanand-mishra/biblioteca/internal/storage/postgres"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqldb"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqlite"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "biblioteca",
		Short:        "Library management web application",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file (or set CONFIG_PATH)")

	// loadConfig runs inside each command, after --config has been parsed.
	// A broken config exits the process: there is nothing useful to do without one.
	loadConfig := func() *config.Config {
		cfg := config.MustLoad(configPath)
		slog.SetDefault(setupLogger(cfg.Env))
		return cfg
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newInitDBCmd(loadConfig),
		newReconcileCmd(loadConfig),
		newUserCmd(loadConfig),
	)

	return root
}

type configLoader func() *config.Config

// openStorage connects to the backend named by cfg.Storage.Driver and
// applies the schema.
func openStorage(ctx context.Context, cfg *config.Config) (*sqldb.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
