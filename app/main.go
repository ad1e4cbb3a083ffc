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

	"github.com/krtrends/marketpulse/app/api"
	"github.com/krtrends/marketpulse/app/cfg"
	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/digest"
	"github.com/krtrends/marketpulse/app/fetch"
	"github.com/krtrends/marketpulse/app/ingest"
	"github.com/krtrends/marketpulse/app/llm"
	"github.com/krtrends/marketpulse/app/mail"
	"github.com/krtrends/marketpulse/app/sources"
	"github.com/krtrends/marketpulse/app/summary"
	"github.com/krtrends/marketpulse/app/tasks"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully.
		return
	}

	setupLogger(c.Debug)
	slog.Info("Starting MarketPulse", "version", c.Version, "timezone", c.Timezone)

	db, err := database.NewDB(c.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	configs, err := sources.NewLoader(c.SourcesDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load source configurations", "dir", c.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "dir", c.SourcesDir, "count", len(configs))

	itemRepo := database.NewItemRepository(db)
	runLogRepo := database.NewRunLogRepository(db)
	summaryRepo := database.NewSummaryRepository(db)
	subscriberRepo := database.NewSubscriberRepository(db)

	client := fetch.NewClient(&http.Client{}, c.UserAgent)

	var synthesizer summary.Synthesizer = summary.TemplateFallback{}
	var itemSummarizer ingest.ItemSummarizer
	if c.AnthropicAPIKey != "" {
		llmClient := llm.NewClient(c.AnthropicAPIKey, c.AnthropicModel)
		synthesizer = summary.NewModelBacked(llmClient)
		if c.ItemSummaries {
			itemSummarizer = ingest.NewLLMSummarizer(llmClient)
		}
		slog.Info("Model synthesis enabled", "model", c.AnthropicModel, "item_summaries", c.ItemSummaries)
	} else {
		slog.Info("Model synthesis disabled, using template summaries (ANTHROPIC_API_KEY not set)")
	}

	runner := ingest.NewRunner(configs, client, itemRepo, runLogRepo, itemSummarizer)
	summarySvc := summary.NewService(itemRepo, summaryRepo, synthesizer)

	var sender mail.Sender
	if c.SendGridAPIKey != "" {
		sender = mail.NewSendGridClient(c.SendGridAPIKey, c.FromEmail, c.FromName)
	} else {
		slog.Info("Digest email disabled, runs will be skipped (SENDGRID_API_KEY not set)")
	}
	dispatcher := digest.NewDispatcher(itemRepo, summaryRepo, subscriberRepo, runLogRepo,
		sender, digest.NewBuilder(c.SiteURL))

	slog.Info("Starting background scheduler", "workers", c.WorkerCount,
		"ingest_interval_hours", c.IngestInterval, "digest_hour", c.DigestHour)
	scheduler := tasks.NewScheduler(runner, summarySvc, dispatcher)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(itemRepo, runLogRepo, summaryRepo, runner, summarySvc, dispatcher)
	server := api.NewServer(handler, c.APIToken)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer.
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
