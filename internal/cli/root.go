package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/config"
	"github.com/NotNullDev/nanomgmt/internal/fetch"
	"github.com/NotNullDev/nanomgmt/internal/logging"
	"github.com/NotNullDev/nanomgmt/internal/repository"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/NotNullDev/nanomgmt/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// annotationNoStore marks commands that run without a record store.
const annotationNoStore = "nanomgmt/no-store"

// App holds the selection engine and service interfaces used by CLI
// commands. Open connects the configured backend before a command runs;
// an App that already has a Store is used as is.
type App struct {
	Viper   *viper.Viper
	Config  config.Config
	Logger  *slog.Logger
	Version string
	Now     func() time.Time

	Store     repository.Store
	Engine    *selection.Engine
	Loader    *fetch.Loader
	Tasks     service.TaskService
	Approvals service.ApprovalService
	Dashboard service.DashboardService

	Open func(ctx context.Context, app *App) error

	// Notices, when set, also receives every loader notification.
	Notices func(fetch.Notification)

	closers []func() error
}

// Wire builds the engine, loader and services on top of store.
func (a *App) Wire(store repository.Store) {
	log := logging.OrDiscard(a.Logger)
	opts := []selection.Option{selection.WithLogger(log)}
	if a.Now != nil {
		opts = append(opts, selection.WithClock(a.Now))
	}
	if a.Config.Selection.HideEmptyTeams {
		opts = append(opts, selection.WithHideEmptyTeams())
	}
	obs := service.NewLogUseCaseObserver(log)

	a.Store = store
	a.Engine = selection.New(opts...)
	a.Loader = fetch.NewLoader(store, a.Engine,
		fetch.WithLoaderLogger(log),
		fetch.WithNotifier(fetch.NotifierFunc(func(n fetch.Notification) {
			log.Warn(n.Title, "level", string(n.Level), "detail", n.Message)
			if a.Notices != nil {
				a.Notices(n)
			}
		})),
	)
	a.Tasks = service.NewTaskService(store, obs)
	a.Approvals = service.NewApprovalService(store, obs)
	a.Dashboard = service.NewDashboardService(store)
}

// OnClose registers fn to run from Close.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases whatever Open acquired, last first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// NewRootCmd creates the top-level "nanomgmt" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	if app.Viper == nil {
		app.Viper = config.NewViper()
	}

	root := &cobra.Command{
		Use:           "nanomgmt",
		Short:         "Time tracking with team approval",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.prepare(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml)")
	flags.String("backend", "", "record store: local or remote")
	flags.String("db", "", "path of the local database")
	flags.String("as", "", "user id to act as on the local backend")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("json", false, "print JSON (same as --format json)")
	flags.String("format", formatTable, "output format: table, json or yaml; csv or markdown for exports")

	bindings := map[string]string{
		config.KeyConfig:   "config",
		config.KeyBackend:  "backend",
		config.KeyDBPath:   "db",
		config.KeyUserID:   "as",
		config.KeyLogLevel: "log-level",
		keyJSON:            "json",
		keyFormat:          "format",
	}
	for key, name := range bindings {
		_ = app.Viper.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newSelectCmd(app),
		newQueryCmd(app),
		newTasksCmd(app),
		newReviewCmd(app),
		newDashboardCmd(app),
		newServeCmd(app),
		newTokenCmd(app),
		newSeedCmd(app),
		newMCPCmd(app),
		newTUICmd(app),
	)

	return root
}

// prepare loads configuration, sets up logging and color, and connects
// the backend unless cmd runs without one.
func (a *App) prepare(cmd *cobra.Command) error {
	cfg, err := config.Load(a.Viper)
	if err != nil {
		return err
	}
	a.Config = cfg

	if a.Logger == nil {
		a.Logger = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	}
	formatter.ConfigureColor(cmd.OutOrStdout())

	if cmd.Annotations[annotationNoStore] != "" || a.Store != nil {
		return nil
	}
	if a.Open == nil {
		return errors.New("no record store configured")
	}
	if err := a.Open(cmd.Context(), a); err != nil {
		return err
	}
	if a.Store == nil {
		return errors.New("backend opened without a record store")
	}
	return nil
}
