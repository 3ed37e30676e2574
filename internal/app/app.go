package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/alekseyt9/newswatch/internal/config"
	"github.com/alekseyt9/newswatch/internal/enrich"
	"github.com/alekseyt9/newswatch/internal/feed"
	"github.com/alekseyt9/newswatch/internal/infrastructure/scheduler"
	"github.com/alekseyt9/newswatch/internal/logging"
	"github.com/alekseyt9/newswatch/internal/notify"
	"github.com/alekseyt9/newswatch/internal/ports"
	"github.com/alekseyt9/newswatch/internal/seenstore"
	"github.com/alekseyt9/newswatch/internal/usecase"
)

// Application wires config to the run pipeline and its lifecycle.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	feeds := make([]feed.Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, feed.Feed{Name: f.Name, URL: f.URL})
	}
	source := feed.NewSource(feeds, cfg.Location(), cfg.Fetch.PerFeedCap, nil,
		baseLogger.With("component", "feed"))

	store := seenstore.New(cfg.StateDir, baseLogger.With("component", "seenstore"))

	var enricher ports.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL,
			nil, baseLogger.With("component", "enrich"))
	}

	notifier := notify.NewWebhookNotifier(cfg.Slack.WebhookURL,
		cfg.Delivery.FirstItems, cfg.Delivery.ChunkItems, cfg.Delivery.SendDelay.Std(),
		nil, baseLogger.With("component", "notify"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Store:    store,
		Enricher: enricher,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	}, usecase.Settings{
		Mode:            cfg.Mode,
		EnrichMaxItems:  cfg.Enrichment.MaxItems,
		EnrichCallDelay: cfg.Enrichment.CallDelay.Std(),
		DigestMaxItems:  cfg.Digest.MaxItems,
	})

	return &Application{cfg: cfg, pipeline: pipeline, logger: baseLogger}
}

// Run executes a single invocation, or keeps running on the configured
// cron cadence when scheduling is enabled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if !a.cfg.Schedule.Enabled {
		return a.pipeline.Run(ctx, time.Now().In(a.cfg.Location()))
	}

	spec := a.cfg.Schedule.IncrementalCron
	if a.cfg.Mode == config.ModeFullWindow {
		spec = a.cfg.Schedule.FullWindowCron
	}

	driver := scheduler.NewCronScheduler(spec, a.cfg.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "mode", a.cfg.Mode, "cron", spec)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}
