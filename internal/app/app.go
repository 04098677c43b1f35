// Package app assembles the ROP simulator from its configuration: the remote
// store, template uploader, rotation engine, notification sink, cycle history,
// generator, scheduler and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/engine"
	"mercator-hq/ropsim/pkg/generator"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/notification"
	"mercator-hq/ropsim/pkg/remote"
	"mercator-hq/ropsim/pkg/retention"
	"mercator-hq/ropsim/pkg/scheduler"
	"mercator-hq/ropsim/pkg/server"
	"mercator-hq/ropsim/pkg/telemetry"
	"mercator-hq/ropsim/pkg/telemetry/health"
	"mercator-hq/ropsim/pkg/templates"
)

// App is a fully wired simulator.
type App struct {
	cfg        *config.Config
	configPath string
	telemetry  *telemetry.Telemetry
	logger     *slog.Logger

	store     remote.Store
	connector *remote.Connector
	uploader  *templates.Uploader
	engine    *engine.Engine
	sink      notification.Sink
	history   *history.Store
	generator *generator.Generator
	scheduler *scheduler.Scheduler
	server    *server.Server
}

// Option customizes an App.
type Option func(*App)

// WithConfigPath enables hot reload of the file at path.
func WithConfigPath(path string) Option {
	return func(a *App) {
		a.configPath = path
	}
}

// WithStore replaces the store selected by the remote backend.
func WithStore(store remote.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// New wires every component described by cfg. Components holding resources
// are released by Close.
func New(cfg *config.Config, tel *telemetry.Telemetry, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		telemetry: tel,
		logger:    tel.Logger().Slog(),
	}
	for _, opt := range opts {
		opt(a)
	}

	perm, err := cfg.Remote.FileMode()
	if err != nil {
		return nil, fmt.Errorf("remote permissions: %w", err)
	}
	loc, err := cfg.ROP.Location()
	if err != nil {
		return nil, fmt.Errorf("rop timezone: %w", err)
	}

	if a.store == nil {
		if a.store, err = newStore(&cfg.Remote, a.logger); err != nil {
			return nil, err
		}
	}
	a.connector = remote.NewConnector(a.store, cfg.Remote.Connection.RetryBackoff, a.logger)

	if a.sink, err = newSink(&cfg.Notifications); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.History.Enabled {
		a.history, err = history.Open(history.Config{
			Path:        cfg.History.SQLite.Path,
			MaxCycles:   cfg.History.MaxCycles,
			BusyTimeout: cfg.History.SQLite.BusyTimeout,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open cycle history: %w", err)
		}
	}

	pool := templates.NewPool()
	a.uploader = templates.NewUploader(a.store, pool,
		cfg.Templates.LocalDirectory,
		cfg.Remote.BaseDirectory,
		cfg.Templates.BinSubdirectory,
		perm, a.logger)
	a.uploader.SetObserver(tel.Metrics())

	capacity := retention.Capacity(cfg.ROP.PeriodMinutes, cfg.ROP.RetentionMinutes)
	if cfg.ROP.PeriodMinutes <= 0 || cfg.ROP.RetentionMinutes < cfg.ROP.PeriodMinutes {
		a.logger.Warn("retention shorter than one rop period, keeping the default snapshot count",
			"period_minutes", cfg.ROP.PeriodMinutes,
			"retention_minutes", cfg.ROP.RetentionMinutes,
			"snapshots", capacity,
		)
	}

	targets := cfg.Nodes.Targets()
	a.engine = engine.New(engine.Config{
		Targets:           targets,
		BaseDir:           a.uploader.BaseDir(),
		BinDir:            a.uploader.BinDir(),
		Permissions:       perm,
		RetentionCapacity: capacity,
		Location:          loc,
	}, a.store, a.sink, pool, engine.WithLogger(a.logger))

	genOpts := []generator.Option{
		generator.WithLogger(a.logger),
		generator.WithObserver(tel.Metrics()),
		generator.WithPreparer(a.uploader),
	}
	if a.history != nil {
		genOpts = append(genOpts, generator.WithRecorder(a.history))
	}
	a.generator = generator.New(generator.Config{
		ConnectAttempts: cfg.Remote.Connection.RetryCountRunning,
		PrepareAttempts: cfg.Generate.RetryCountMax,
		PrepareBackoff:  cfg.Generate.Backoff,
		Targets:         targets,
	}, a.engine, a.connector, genOpts...)

	if schedule := scheduleFor(&cfg.ROP); schedule != "" {
		a.scheduler = scheduler.New(scheduler.Config{Schedule: schedule, Location: loc}, a.generator, a.logger)
	}

	checker := tel.Health()
	checker.RegisterCheck(health.CheckRemoteStore, health.RemoteStoreCheck(a.store))
	checker.RegisterCheck(health.CheckBootstrap, health.BootstrapCheck(a.engine))

	build := tel.Build()
	deps := server.Deps{
		Generator:     a.generator,
		Notifications: a.sink,
		TemplatesDir:  cfg.Templates.LocalDirectory,
		Health:        checker,
		Version: health.VersionInfo{
			Version:   build.Version,
			Commit:    build.Commit,
			BuildTime: build.BuildTime,
		},
		Observer: tel.Metrics(),
	}
	if a.history != nil {
		deps.Cycles = a.history
	}
	if cfg.Telemetry.Metrics.Enabled {
		deps.Metrics = tel.Metrics().Handler()
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	a.server = server.New(&cfg.Server, deps, a.logger)

	return a, nil
}

func newStore(cfg *config.RemoteConfig, logger *slog.Logger) (remote.Store, error) {
	switch cfg.Backend {
	case "sftp":
		return remote.NewSFTPStore(remote.SFTPConfig{
			Host:           cfg.Host,
			Port:           cfg.Port,
			User:           cfg.User,
			Password:       cfg.Password,
			PrivateKeyPath: cfg.PrivateKeyPath,
			KnownHostsPath: cfg.KnownHostsPath,
			Timeout:        cfg.Connection.Timeout,
		}, logger), nil
	case "local":
		return remote.NewLocalStore(cfg.Local.Root, logger), nil
	case "memory":
		return remote.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", cfg.Backend)
	}
}

func newSink(cfg *config.NotificationsConfig) (notification.Sink, error) {
	switch cfg.Backend {
	case "", "memory":
		return notification.NewMemorySink(), nil
	case "sqlite":
		sink, err := notification.NewSQLiteSink(notification.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open notification store: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported notification backend: %s", cfg.Backend)
	}
}

// scheduleFor resolves the cron expression for rotation. It returns "" when
// scheduling is off.
func scheduleFor(cfg *config.ROPConfig) string {
	switch cfg.Schedule {
	case config.ScheduleOff:
		return ""
	case "":
		return scheduler.DefaultSchedule(cfg.Period())
	default:
		return cfg.Schedule
	}
}

// Engine returns the rotation engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Generator returns the trigger generator.
func (a *App) Generator() *generator.Generator { return a.generator }

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Scheduler returns the scheduler, or nil when scheduling is off.
func (a *App) Scheduler() *scheduler.Scheduler { return a.scheduler }

// Startup connects to the remote store and runs the startup trigger. A
// store that stays unreachable is logged and left to later triggers.
func (a *App) Startup(ctx context.Context) generator.Result {
	if err := a.connector.Ensure(ctx, a.cfg.Remote.Connection.RetryCountStartup); err != nil {
		a.logger.Error("remote store unreachable at startup, waiting for the next trigger",
			"store", fmt.Sprint(a.store),
			"attempts", a.cfg.Remote.Connection.RetryCountStartup,
			"error", err,
		)
		return generator.Result{
			Source:  generator.SourceStartup,
			Outcome: generator.OutcomeFailed,
			Reason:  generator.ReasonNoConnection,
			Err:     err,
		}
	}
	return a.generator.Trigger(ctx, generator.SourceStartup)
}

// Run serves HTTP, runs the startup trigger followed by the scheduler, and
// watches the configuration file until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start(ctx)
	})

	g.Go(func() error {
		a.Startup(ctx)
		if a.scheduler == nil {
			a.logger.Info("scheduled rotation disabled")
			<-ctx.Done()
			return nil
		}
		return a.scheduler.Run(ctx)
	})

	if a.configPath != "" {
		unregister := config.OnReload(a.applyReload)
		defer unregister()
		watcher := config.NewWatcher(a.configPath, 0, nil, a.logger)
		g.Go(func() error {
			return watcher.Run(ctx)
		})
		g.Go(func() error {
			a.reloadOnSignal(ctx)
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) reloadOnSignal(ctx context.Context) {
	sig, stop := cli.ReloadSignal()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			a.logger.Info("reload signal received", "path", a.configPath)
			if err := config.ReloadConfig(a.configPath); err != nil {
				a.logger.Error("configuration reload failed", "error", err)
			}
		}
	}
}

// applyReload applies the settings that can change without a restart.
func (a *App) applyReload(old, updated *config.Config) {
	if err := a.telemetry.Logger().SetLevel(updated.Telemetry.Logging.Level); err != nil {
		a.logger.Warn("ignoring reloaded log level", "level", updated.Telemetry.Logging.Level, "error", err)
	}
	if old != nil && (old.Nodes != updated.Nodes || old.ROP != updated.ROP || old.Remote.Backend != updated.Remote.Backend) {
		a.logger.Warn("node, rop and remote changes take effect after a restart")
	}
	a.logger.Info("configuration reloaded", "log_level", updated.Telemetry.Logging.Level)
}

// Close releases the store, notification sink and cycle history.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return errors.Join(errs...)
}

// ShutdownTelemetry flushes telemetry within timeout.
func (a *App) ShutdownTelemetry(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.telemetry.Shutdown(ctx)
}
