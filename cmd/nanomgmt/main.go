package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotNullDev/nanomgmt/internal/cli"
	"github.com/NotNullDev/nanomgmt/internal/config"
	"github.com/NotNullDev/nanomgmt/internal/db"
	"github.com/NotNullDev/nanomgmt/internal/remote"
	"github.com/NotNullDev/nanomgmt/internal/repository"
)

// version is stamped by the release build.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Version: version,
		Open:    openBackend,
	}
	defer app.Close()

	rootCmd := cli.NewRootCmd(app)
	rootCmd.Version = version
	return rootCmd.ExecuteContext(ctx)
}

// openBackend connects the configured record store and wires the App on
// top of it.
func openBackend(ctx context.Context, app *cli.App) error {
	cfg := app.Config
	switch cfg.Backend {
	case config.BackendRemote:
		app.Logger.Debug("using remote record store", "url", cfg.Remote.URL)
		app.Wire(remote.New(cfg.Remote.URL, cfg.Remote.Token))
	default:
		database, err := db.OpenDB(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		app.OnClose(database.Close)
		app.Logger.Debug("using local record store", "path", cfg.DB.Path, "user", cfg.User.ID)
		app.Wire(repository.NewSQLiteStore(database, repository.WithCurrentUser(cfg.User.ID)))
	}
	return nil
}
