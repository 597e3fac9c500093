package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/ai"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/clickhouse"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/discord"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/price"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/telegram"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/admin"
	"github.com/DITreneris/btcbuzzbot/internal/content"
	"github.com/DITreneris/btcbuzzbot/internal/news"
	"github.com/DITreneris/btcbuzzbot/internal/publish"
	"github.com/DITreneris/btcbuzzbot/internal/scheduler"
	"github.com/DITreneris/btcbuzzbot/internal/sentiment"
	"github.com/DITreneris/btcbuzzbot/internal/status"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/metrics"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("btcbuzzbot starting...")

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	statusLog := status.NewLogger(st)

	// Optional ClickHouse metrics sink
	buffer, chDB := initMetrics(cfg)
	if chDB != nil {
		defer chDB.Close()
	}

	// Initialize external clients
	twitterClient := twitter.NewClient(&cfg.Twitter)
	priceClient := price.NewCoinGeckoClient(&cfg.CoinGecko)
	groq := ai.NewGroqProvider(&cfg.Groq)
	fallback := sentiment.NewAnalyzer()

	// News pipeline
	fetcher := news.NewFetcher(st, twitterClient, cfg.Twitter.SearchQuery, cfg.News.FetchMaxResults)
	analyzer := news.NewAnalyzer(news.AnalyzerConfig{
		Store:        st,
		Provider:     groq,
		Fallback:     fallback,
		Buffer:       buffer,
		BatchSize:    cfg.News.AnalysisBatchSize,
		Concurrency:  cfg.News.AnalysisConcurrency,
		CallTimeout:  cfg.Groq.RequestTimeout(),
		CycleTimeout: cfg.News.ProcessingTimeout(),
	})

	// Publisher
	publisher := publish.NewPublisher(publish.PublisherConfig{
		Store:           st,
		Prices:          priceClient,
		Social:          twitterClient,
		Picker:          content.NewPicker(st, cfg.Publish.ReuseWindow()),
		Status:          statusLog,
		Buffer:          buffer,
		Channels:        initSideChannels(cfg),
		NewsWindowHours: cfg.News.HoursLimit,
		DuplicateWindow: cfg.Publish.DuplicateWindow(),
	})

	// Scheduler
	schedCfg := scheduler.Config{
		Store:           st,
		Status:          statusLog,
		Publish:         publisher,
		Fetch:           fetcher.FetchCycle,
		Analyze:         analyzer.AnalyzeCycle,
		DefaultSchedule: cfg.Publish.PostTimes,
		FetchInterval:   cfg.News.FetchInterval(),
		AnalyzeInterval: cfg.News.AnalyzeInterval(),
		WatchInterval:   cfg.Publish.ScheduleWatchInterval(),
	}
	if cfg.Publish.EngagementEnabled {
		refresher := publish.NewEngagementRefresher(st, twitterClient, 10)
		schedCfg.Engagement = refresher.RefreshCycle
		schedCfg.EngagementInterval = cfg.Publish.EngagementInterval()
	}

	sched := scheduler.New(schedCfg)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Admin HTTP surface, disabled when no port is configured
	var adminServer *admin.Server
	if cfg.Admin.Port != "" {
		adminServer = admin.NewServer(cfg.Admin.Port, db, st, sched)
		go func() {
			if err := adminServer.Start(); err != nil {
				logger.Error("admin server error", zap.Error(err))
			}
		}()
	}

	// Prime the news pipeline so the first publish has material to use
	go primeNewsPipeline(ctx, fetcher, analyzer)

	logger.Info("btcbuzzbot ready",
		zap.Strings("post_times", sched.Labels()),
		zap.String("admin_port", cfg.Admin.Port),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	return performGracefulShutdown(adminServer, sched, buffer)
}

// initDatabase opens the configured database and applies migrations
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationsPath := "./migrations"
	if err := database.RunMigrations(db, migrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database ready", zap.String("driver", db.Driver()))

	return db, nil
}

// initMetrics connects the optional ClickHouse sink. Any failure
// degrades to running without metrics.
func initMetrics(cfg *config.Config) (*metrics.BufferedMetrics, *sqlx.DB) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	chDB, err := clickhouse.Connect(cfg.ClickHouse.DSN)
	if err != nil {
		logger.Warn("clickhouse not available, metrics disabled", zap.Error(err))
		return nil, nil
	}

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := clickhouse.EnsureSchema(schemaCtx, chDB); err != nil {
		logger.Warn("clickhouse schema setup failed, metrics disabled", zap.Error(err))
		chDB.Close()
		return nil, nil
	}

	writer := clickhouse.NewWriter(clickhouse.NewRepository(chDB))
	buffer := metrics.NewBufferedMetrics(metrics.BufferConfig{Writer: writer})

	return buffer, chDB
}

// initSideChannels builds the enabled secondary channels
func initSideChannels(cfg *config.Config) []publish.SideChannel {
	var channels []publish.SideChannel

	if d := discord.NewNotifier(&cfg.Discord); d != nil {
		channels = append(channels, d)
		logger.Info("discord side channel enabled")
	}

	tg, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Warn("failed to initialize telegram notifier", zap.Error(err))
	} else if tg != nil {
		channels = append(channels, tg)
		logger.Info("telegram side channel enabled")
	}

	return channels
}

// primeNewsPipeline runs one fetch and one analyze pass at startup so
// the first scheduled publish already has analyzed news to draw from
func primeNewsPipeline(ctx context.Context, fetcher *news.Fetcher, analyzer *news.Analyzer) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if err := fetcher.FetchCycle(runCtx); err != nil {
		logger.Warn("initial news fetch failed", zap.Error(err))
	}
	if err := analyzer.AnalyzeCycle(runCtx); err != nil {
		logger.Warn("initial news analysis failed", zap.Error(err))
	}
}

// performGracefulShutdown stops components in reverse dependency order
func performGracefulShutdown(adminServer *admin.Server, sched *scheduler.Scheduler, buffer *metrics.BufferedMetrics) error {
	logger.Info("shutdown signal received, starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	// Stop the admin surface first so nothing mutates the schedule
	// while jobs drain
	if adminServer != nil {
		if err := adminServer.Stop(shutdownCtx); err != nil {
			logger.Error("admin server stop error", zap.Error(err))
		}
	}

	sched.Stop(shutdownCtx)

	if buffer != nil {
		if err := buffer.Close(shutdownCtx); err != nil {
			logger.Error("metrics buffer close error", zap.Error(err))
		}
	}

	logger.Info("shutdown completed")

	return nil
}
