package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkwell-sh/inkwell/app/api"
	"github.com/inkwell-sh/inkwell/app/cfg"
	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
	"github.com/inkwell-sh/inkwell/app/images"
	"github.com/inkwell-sh/inkwell/app/llm"
	"github.com/inkwell-sh/inkwell/app/notify"
	"github.com/inkwell-sh/inkwell/app/pipeline"
	"github.com/inkwell-sh/inkwell/app/scheduler"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Inkwell", "version", appCfg.Version, "timezone", appCfg.Timezone)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)
	stateRepo := database.NewPipelineStateRepository(db)
	activityRepo := database.NewActivityLogRepository(db)

	ctx := context.Background()

	llmClient, err := llm.NewClient(ctx, appCfg.GeminiAPIKey, appCfg.GeminiModel, appCfg.LLMTimeout)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	validator := generator.NewReferenceValidator(appCfg.UserAgent)
	evaluator := generator.NewEvaluator(llmClient)
	writer := generator.NewWriter(llmClient, validator)

	sourcesConfig, err := scraper.LoadSourcesConfig(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load sources configuration", "path", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Sources configuration loaded", "rss_feeds", len(sourcesConfig.RSSFeeds), "arxiv_categories", len(sourcesConfig.ArxivCategories))

	fetcher := scraper.NewFetcher(appCfg.UserAgent)
	registry := scraper.NewRegistry(fetcher)
	rssScraper := scraper.NewRSSScraper(fetcher)
	arxivScraper := scraper.NewArxivScraper(fetcher)

	notifier := notify.NewSlackNotifier(appCfg.SlackWebhookURL)

	var heroes *pipeline.HeroImageStage
	if appCfg.GenerateHeroImages {
		imageGen, err := images.NewGeminiGenerator(ctx, appCfg.GeminiAPIKey)
		if err != nil {
			slog.Error("Failed to initialize image generator", "error", err)
			os.Exit(1)
		}
		storage, err := images.NewLocalStorage(appCfg.ImageStorageDir, appCfg.ImageBaseURL)
		if err != nil {
			slog.Error("Failed to initialize image storage", "dir", appCfg.ImageStorageDir, "error", err)
			os.Exit(1)
		}
		heroes = pipeline.NewHeroImageStage(imageGen, storage, articleRepo)
		slog.Info("Hero image generation enabled", "dir", appCfg.ImageStorageDir)
	}

	pipelineOpts := pipeline.Options{
		MinScore:              appCfg.AutoGenerateMinScore,
		MaxArticlesPerEdition: appCfg.MaxArticlesPerEdition,
		StaleRunTimeout:       time.Duration(appCfg.StaleRunTimeoutMinutes) * time.Minute,
		GenerateHeroImages:    appCfg.GenerateHeroImages,
		Location:              appCfg.Location,
	}

	pipe := pipeline.NewPipeline(pipelineOpts, sourcesConfig, rssScraper, arxivScraper,
		evaluator, writer, heroes, notifier, pipeline.NewMemoryLocker(),
		sourceRepo, articleRepo, stateRepo, activityRepo)

	sched := scheduler.NewScheduler(pipe)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(sourceRepo, articleRepo, stateRepo, activityRepo,
		pipe, registry, evaluator, writer, validator,
		api.HandlerOptions{
			Version:       appCfg.Version,
			MinScore:      appCfg.AutoGenerateMinScore,
			EvaluateDelay: time.Second,
			MorningHour:   appCfg.MorningHour,
			EveningHour:   appCfg.EveningHour,
			Timezone:      appCfg.Timezone,
		})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // pipeline runs and SSE streams are long-lived
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
