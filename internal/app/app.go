package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"CrawlPipe/internal/config"
	"CrawlPipe/internal/filestore"
	"CrawlPipe/internal/infrastructure/discovery"
	"CrawlPipe/internal/infrastructure/fetcher"
	"CrawlPipe/internal/infrastructure/llm"
	"CrawlPipe/internal/infrastructure/ml"
	"CrawlPipe/internal/infrastructure/scheduler"
	"CrawlPipe/internal/infrastructure/storage"
	"CrawlPipe/internal/infrastructure/telegram"
	"CrawlPipe/internal/logging"
	"CrawlPipe/internal/ports"
	"CrawlPipe/internal/scanner"
	"CrawlPipe/internal/tagging"
	"CrawlPipe/internal/usecase"
)

// Application wires configuration to the pipeline and its lifecycle.
type Application struct {
	cfg        config.Config
	pipeline   *usecase.Pipeline
	repository *storage.SQLiteRepository
	logger     *slog.Logger
}

// New builds a runnable application instance. Construction fails on
// configuration errors: unreadable taxonomy, prompt template, or database.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(discovery.NewRSSScanner(nil))
	registry.Register(discovery.NewPageScanner(nil))
	source := discovery.NewStrategySource(registry, baseLogger.With("component", "discovery"))

	pageFetcher := fetcher.NewPageFetcher(&http.Client{Timeout: cfg.Fetch.RequestTimeoutDuration()})
	dispatcher := fetcher.NewDispatcher(pageFetcher, cfg.Fetch, baseLogger.With("component", "fetcher"))

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	promptTemplate, err := os.ReadFile(cfg.Summarize.PromptPath)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}

	taxonomy, err := tagging.LoadTaxonomy(cfg.Tagging.TagsPath)
	if err != nil {
		return nil, err
	}

	var embedder ports.Embedder
	if cfg.ML.InferenceURL != "" {
		embedder = ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey)
	}
	tagger := tagging.NewTagger(taxonomy, embedder, cfg.Tagging.SemanticThreshold,
		baseLogger.With("component", "tagger"))

	repository, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Candidates:     source,
		URLs:           filestore.NewURLStore(cfg.DataDir, baseLogger.With("component", "urlstore")),
		Records:        filestore.NewRecordStore(cfg.DataDir),
		Sources:        filestore.NewSourceRegistry(cfg.SourcesFile),
		Fetcher:        dispatcher,
		Chat:           chatClient,
		Tagger:         tagger,
		Repository:     repository,
		Notifier:       notifier,
		PromptTemplate: string(promptTemplate),
		SummarizeConc:  cfg.Summarize.Concurrency,
		Logger:         baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:        cfg,
		pipeline:   pipeline,
		repository: repository,
		logger:     baseLogger,
	}, nil
}

// Run performs a single pipeline execution over all configured sources.
func (a *Application) Run(ctx context.Context) error {
	return a.pipeline.ProcessAll(ctx)
}

// RunScheduled executes the pipeline on the configured cron expression
// until the context is cancelled.
func (a *Application) RunScheduled(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return sched.Stop(context.Background())
}

// PurgeByDate removes stored articles whose key contains the date string.
func (a *Application) PurgeByDate(ctx context.Context, date string) (int64, error) {
	return a.repository.DeleteByDate(ctx, date)
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.repository != nil {
		return a.repository.Close()
	}
	return nil
}
