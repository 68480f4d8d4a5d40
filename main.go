package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/internal/deletesync"
	"github.com/hnipps/pulsarr/internal/metrics"
	"github.com/hnipps/pulsarr/internal/notify"
	"github.com/hnipps/pulsarr/internal/plex"
	"github.com/hnipps/pulsarr/internal/report"
	"github.com/hnipps/pulsarr/internal/scheduler"
	"github.com/hnipps/pulsarr/internal/store"
	"github.com/hnipps/pulsarr/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Version information - set at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		log.Fatalf("pulsarr: %v", err)
	}
}

// run dispatches the subcommand named by the first argument; "run" is the default
func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "version":
		fmt.Fprintf(stdout, "Pulsarr version %s\n", version)
		fmt.Fprintln(stdout, "Watchlist-driven delete sync for Sonarr and Radarr")
		return nil
	case "run":
		return runDeleteSyncCommand(ctx, args)
	case "serve":
		return runServeCommand(ctx, args)
	case "user-add":
		return runUserAddCommand(args, stdout)
	case "user-list":
		return runUserListCommand(args, stdout)
	default:
		return fmt.Errorf("unknown command %q (expected run, serve, user-add, user-list or version)", command)
	}
}

// application holds every wired component of one process
type application struct {
	cfg      *config.Config
	logger   arr.Logger
	store    *store.Store
	plex     *plex.PlexClient
	sonarr   *arr.SonarrManager
	radarr   *arr.RadarrManager
	service  *deletesync.Service
	recorder *metrics.Recorder
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close database: %v", err)
	}
}

// newApplication wires config into store, instance managers, Plex services and
// the delete sync service. printReport echoes run reports to the terminal.
func newApplication(cfg *config.Config, logger arr.Logger, printReport bool) (*application, error) {
	if cfg.Plex.URL == "" || cfg.Plex.Token == "" {
		return nil, errors.New("PLEX_URL and PLEX_TOKEN are required to refresh watchlists")
	}

	db, err := store.Open(cfg.DatabaseFile)
	if err != nil {
		return nil, err
	}

	plexClient := plex.NewPlexClient(&cfg.Plex, cfg.RequestTimeout, logger)
	sonarr := arr.NewSonarrManagerFromConfig(cfg, logger)
	radarr := arr.NewRadarrManagerFromConfig(cfg, logger)
	recorder := metrics.NewRecorder()

	deps := deletesync.Deps{
		Watchlists: db,
		Users:      db,
		Sonarr:     sonarr,
		Radarr:     radarr,
		Refresher:  plex.NewWatchlistRefresher(plexClient, db, logger),
		Notifier:   notify.NewDispatcher(cfg.Notify, cfg.RequestTimeout, logger),
		Reports:    report.NewGenerator(logger),
		Metrics:    recorder,
		Progress:   arr.NewConsoleProgressReporter(logger),
		Logger:     logger,

		PrintReport: printReport,
	}
	if cfg.DeleteSync.EnablePlexPlaylistProtection {
		deps.Protection = plex.NewProtectionService(plexClient, db, cfg.DeleteSync.PlexProtectionPlaylistName, logger)
	}

	service, err := deletesync.NewService(cfg.DeleteSync, deps)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &application{
		cfg:      cfg,
		logger:   logger,
		store:    db,
		plex:     plexClient,
		sonarr:   sonarr,
		radarr:   radarr,
		service:  service,
		recorder: recorder,
	}, nil
}

// checkConnections verifies Plex is reachable and logs the configured instances
func (a *application) checkConnections(ctx context.Context) error {
	if err := a.plex.TestConnection(ctx); err != nil {
		return err
	}
	for _, inst := range a.sonarr.Instances() {
		a.logger.Info("Sonarr instance %d: %s", inst.ID(), inst.Name())
	}
	for _, inst := range a.radarr.Instances() {
		a.logger.Info("Radarr instance %d: %s", inst.ID(), inst.Name())
	}
	return nil
}

// runDeleteSyncCommand performs one delete sync and exits
func runDeleteSyncCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "Report what would be deleted without deleting anything")
	logLevel := fs.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.DryRun = cfg.DryRun || *dryRun

	logger := arr.NewStandardLogger(cfg.LogLevel)
	logger.Info("Starting Pulsarr %s - Delete Sync", version)

	app, err := newApplication(cfg, logger, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.checkConnections(ctx); err != nil {
		return err
	}

	result, err := app.service.Run(ctx, cfg.DryRun)
	if err != nil {
		return fmt.Errorf("delete sync interrupted: %w", err)
	}
	if result.SafetyTriggered {
		return fmt.Errorf("delete sync stopped by safety check: %s", result.SafetyMessage)
	}

	logger.Info("🎉 Delete sync finished: %s", deletesync.Summary(result))
	return nil
}

// runServeCommand runs delete sync on the configured schedule and serves metrics until interrupted
func runServeCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	runNow := fs.Bool("run-now", false, "Run a delete sync immediately on startup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := scheduler.ValidateSchedule(cfg.DeleteSync.Schedule); err != nil {
		return err
	}

	logger := arr.NewStandardLogger(cfg.LogLevel)
	logger.Info("Starting Pulsarr %s - Delete Sync service", version)

	app, err := newApplication(cfg, logger, false)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.checkConnections(ctx); err != nil {
		return err
	}

	return serve(ctx, app.service, app.recorder, cfg, *runNow, logger)
}

// serve runs the scheduler and the metrics server until ctx is done. A startup
// run requested with runNow is joined before serve returns.
func serve(ctx context.Context, runner scheduler.Runner, recorder *metrics.Recorder, cfg *config.Config, runNow bool, logger arr.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewScheduler(runner, cfg.DeleteSync.Schedule, cfg.DryRun, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if runNow {
		g.Go(func() error {
			if _, err := runner.Run(gctx, cfg.DryRun); err != nil {
				logger.Warn("Startup delete sync interrupted: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		// A failed listener stops the startup run too
		defer cancel()
		return metrics.NewServer(cfg.MetricsAddr, recorder, logger).Run(gctx)
	})
	return g.Wait()
}

// runUserAddCommand registers a Plex user whose watchlist feeds delete sync
func runUserAddCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("user-add", flag.ContinueOnError)
	name := fs.String("name", "", "Plex username")
	token := fs.String("token", "", "Plex token of the user (optional for the server owner)")
	primary := fs.Bool("primary", false, "Mark the user as the server owner")
	sync := fs.Bool("sync", true, "Include the user's watchlist in delete sync")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("user-add: --name is required")
	}

	db, err := store.Open(config.DatabaseFile())
	if err != nil {
		return err
	}
	defer db.Close()

	user := models.User{Name: *name, PlexToken: *token, IsPrimary: *primary, SyncDisabled: !*sync}
	if existing, err := db.GetUserByName(*name); err == nil {
		// Updates only touch the flags given on the command line
		user = *existing
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "token":
				user.PlexToken = *token
			case "primary":
				user.IsPrimary = *primary
			case "sync":
				user.SyncDisabled = !*sync
			}
		})
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := db.SaveUser(&user); err != nil {
		return fmt.Errorf("user-add: %w", err)
	}
	fmt.Fprintf(stdout, "Saved user %q (id %d)\n", user.Name, user.ID)
	return nil
}

// runUserListCommand prints the known users
func runUserListCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("user-list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := store.Open(config.DatabaseFile())
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.GetAllUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(stdout, "No users registered")
		return nil
	}
	for _, u := range users {
		role := "user"
		if u.IsPrimary {
			role = "owner"
		}
		items, err := db.GetWatchlistItemsByUser(u.ID)
		if err != nil {
			return fmt.Errorf("failed to load watchlist of %s: %w", u.Name, err)
		}
		fmt.Fprintf(stdout, "%d\t%s\t%s\tsync=%t\ttoken=%t\titems=%d\n",
			u.ID, u.Name, role, u.SyncEnabled(), u.PlexToken != "", len(items))
	}
	return nil
}
