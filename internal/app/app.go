package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ChannelBanner/internal/banner"
	"ChannelBanner/internal/config"
	"ChannelBanner/internal/infrastructure/drive"
	"ChannelBanner/internal/infrastructure/oauth"
	"ChannelBanner/internal/infrastructure/scheduler"
	"ChannelBanner/internal/infrastructure/storage"
	"ChannelBanner/internal/infrastructure/telegram"
	"ChannelBanner/internal/infrastructure/youtube"
	"ChannelBanner/internal/logging"
	"ChannelBanner/internal/ports"
	"ChannelBanner/internal/publish"
	"ChannelBanner/internal/usecase"
)

const stopGrace = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	closers   []io.Closer
}

// Options overrides process-level sinks; zero values use stdout.
type Options struct {
	ConsentOut io.Writer
}

// New builds a runnable application instance. It connects to Postgres when a
// DSN is configured; every other adapter is lazy.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if opts.ConsentOut == nil {
		opts.ConsentOut = os.Stdout
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	store, err := oauth.NewStore(oauth.StoreOptions{
		CredentialsFile: cfg.OAuth.CredentialsFile,
		TokenFile:       cfg.OAuth.TokenFile,
		Scopes:          oauth.DefaultScopes,
		Consent: &oauth.LoopbackConsent{
			Out:     opts.ConsentOut,
			Timeout: cfg.OAuth.ConsentTimeout,
			Logger:  baseLogger.With("component", "oauth.consent"),
		},
		HTTPClient: httpClient,
		Logger:     baseLogger.With("component", "oauth.store"),
	})
	if err != nil {
		return nil, err
	}

	registry := publish.NewRegistry(
		youtube.NewBannerPublisher(store, cfg.Publish.Endpoint, baseLogger.With("component", "publisher.banner")),
		drive.NewPublisher(store, cfg.Publish.DriveFolderID, filepath.Base(cfg.Banner.Output),
			cfg.Publish.Endpoint, baseLogger.With("component", "publisher.drive")),
	)
	publisher, err := registry.Resolve(cfg.Publish.Destination)
	if err != nil {
		return nil, err
	}

	application := &Application{cfg: cfg, logger: baseLogger}

	var repository ports.PublicationRepository
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		application.closers = append(application.closers, db)

		repo := storage.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = application.Close()
			return nil, err
		}
		repository = repo
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.Endpoint, tg.BotToken, tg.ChatID, httpClient)
	}

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher: youtube.NewStatisticsClient(cfg.YouTube.Endpoint, cfg.YouTube.APIKey, httpClient,
			baseLogger.With("component", "youtube.statistics")),
		Renderer: banner.NewRenderer(banner.Fonts{
			Preferred: cfg.Banner.PreferredFont,
			Fallback:  cfg.Banner.FallbackFont,
		}, baseLogger.With("component", "renderer")),
		Artifacts:     banner.FileWriter{},
		Publisher:     publisher,
		Repository:    repository,
		Notifier:      notifier,
		Logger:        baseLogger.With("component", "pipeline"),
		ChannelID:     cfg.YouTube.ChannelID,
		Goal:          cfg.Goal,
		OutputPath:    cfg.Banner.Output,
		SkipUnchanged: cfg.Publish.SkipUnchanged,
	})

	if cfg.Scheduler.CronExpression != "" {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(),
			baseLogger.With("component", "scheduler"))
		application.scheduler = usecase.NewScheduler(driver, application.pipeline, baseLogger.With("component", "scheduler"))
	}

	return application, nil
}

// Run performs a single pipeline execution, or keeps the schedule running
// until ctx is cancelled when a cron expression is configured.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if a.scheduler == nil {
		return a.pipeline.Run(ctx, time.Now().In(a.cfg.Scheduler.Location()))
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("Scheduler running", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return err
	}
	a.logger.Info("Scheduler stopped")
	return nil
}

// Close releases the database connection pool, if any.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
