package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"CampusNotify/internal/config"
	"CampusNotify/internal/infrastructure/line"
	"CampusNotify/internal/infrastructure/parser"
	"CampusNotify/internal/infrastructure/scheduler"
	"CampusNotify/internal/infrastructure/sidechannel"
	"CampusNotify/internal/infrastructure/storage"
	"CampusNotify/internal/logging"
	"CampusNotify/internal/ports"
	"CampusNotify/internal/usecase"
)

// Application wires configuration to adapters and the run engine.
type Application struct {
	cfg    config.Config
	db     *sql.DB
	engine *usecase.Engine
	logger *slog.Logger
}

// New builds a runnable application: ledger database opened and migrated,
// adapters constructed, engine assembled.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	ledger := storage.NewSQLLedger(db, cfg.Database.Driver)
	if err := ledger.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	source := parser.NewBulletinScanner(
		cfg.Source.PageURL,
		cfg.Source.BaseURL,
		cfg.Source.Selector,
		cfg.Scheduler.Location(),
		nil,
	)

	channel := line.NewClient(cfg.Channel.Endpoint, cfg.Channel.Timeout())

	var sidePoster ports.SidePoster
	if cfg.SideChannel.Endpoint != "" {
		sidePoster = sidechannel.NewWebhookPoster(cfg.SideChannel.Endpoint, cfg.SideChannel.Token)
	}

	engine := usecase.NewEngine(usecase.EngineDeps{
		Source:   source,
		Detector: usecase.NewDetector(ledger, baseLogger.With("component", "detector")),
		Composer: usecase.NewComposer(
			cfg.Notifications.Footer,
			cfg.Notifications.FirstYearTag,
			cfg.Notifications.SecondYearTag,
		),
		Dispatcher: usecase.NewDispatcher(
			ledger,
			channel,
			cfg.Dispatch.Workers,
			cfg.Dispatch.RatePerSec,
			baseLogger.With("component", "dispatcher"),
		),
		SidePoster: sidePoster,
		Location:   cfg.Scheduler.Location(),
		Logger:     baseLogger.With("component", "engine"),
	})

	return &Application{cfg: cfg, db: db, engine: engine, logger: baseLogger}, nil
}

// RunDaily executes one daily sweep and exits.
func (a *Application) RunDaily(ctx context.Context) error {
	return a.engine.RunDaily(ctx, time.Now())
}

// RunRealtime executes one realtime sweep and exits.
func (a *Application) RunRealtime(ctx context.Context, broadcast bool) error {
	return a.engine.RunRealtime(ctx, time.Now(), broadcast)
}

// RunSchedule keeps triggering realtime and daily sweeps on their cron specs
// until ctx is cancelled.
func (a *Application) RunSchedule(ctx context.Context, broadcast bool) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.Location())

	err := driver.Schedule(a.cfg.Scheduler.RealtimeCron, func(t time.Time) {
		if err := a.engine.RunRealtime(ctx, t, broadcast); err != nil {
			a.logger.Error("scheduled realtime run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule realtime: %w", err)
	}

	err = driver.Schedule(a.cfg.Scheduler.DailyCron, func(t time.Time) {
		if err := a.engine.RunDaily(ctx, t); err != nil {
			a.logger.Error("scheduled daily run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule daily: %w", err)
	}

	if err := driver.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"realtime", a.cfg.Scheduler.RealtimeCron,
		"daily", a.cfg.Scheduler.DailyCron)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return driver.Stop(stopCtx)
}

// Close releases the ledger database.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
