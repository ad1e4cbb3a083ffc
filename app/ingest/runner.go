// Package ingest orchestrates one collection run across the configured
// sources: fetch, extract, identity assignment and the change-detecting
// batch commit.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/extract"
	"github.com/krtrends/marketpulse/app/feed"
	"github.com/krtrends/marketpulse/app/fetch"
	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/sources"
)

// newFlagMaxAge is how long a feed article keeps its new badge.
const newFlagMaxAge = 24 * time.Hour

// Stats aggregates one run across all selected sources.
type Stats struct {
	Sources int `json:"sources"`
	Items   int `json:"items"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// Runner executes collection runs. Sources run sequentially; the configured
// courtesy delay separates consecutive page fetches against the same host.
type Runner struct {
	configs    []*sources.Config
	engine     *extract.Engine
	api        *extract.APIAdapter
	feeds      *feed.Adapter
	client     *fetch.Client
	items      database.ItemRepository
	runLogs    database.RunLogRepository
	summarizer ItemSummarizer
}

func NewRunner(
	configs []*sources.Config,
	client *fetch.Client,
	items database.ItemRepository,
	runLogs database.RunLogRepository,
	summarizer ItemSummarizer,
) *Runner {
	return &Runner{
		configs:    configs,
		engine:     extract.NewEngine(),
		api:        extract.NewAPIAdapter(client),
		feeds:      feed.NewAdapter(client),
		client:     client,
		items:      items,
		runLogs:    runLogs,
		summarizer: summarizer,
	}
}

// Run processes every enabled source whose type is in types; nil means all
// types. One broken source never aborts the rest of the run.
func (r *Runner) Run(ctx context.Context, types ...string) Stats {
	var stats Stats
	wantFeeds := false

	for _, cfg := range r.configs {
		if !cfg.Settings.Enabled || !typeSelected(cfg.Source.Type, types) {
			continue
		}
		if cfg.Source.Type == sources.TypeFeed {
			wantFeeds = true
		}

		stats.Sources++
		sourceStats, err := r.runSource(ctx, cfg)
		if err != nil {
			stats.Errors++
			slog.Error("Source run failed", "source", cfg.Name, "error", err)
			continue
		}

		stats.Items += sourceStats.Total
		stats.New += sourceStats.New
		stats.Updated += sourceStats.Updated
	}

	if wantFeeds {
		r.sweepStaleFlags()
	}

	slog.Info("Ingestion run finished",
		"sources", stats.Sources, "items", stats.Items,
		"new", stats.New, "updated", stats.Updated, "errors", stats.Errors)
	return stats
}

func typeSelected(sourceType string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == sourceType {
			return true
		}
	}
	return false
}

// runSource collects one source end to end. Panics in adapter code are
// converted to errors so a malformed page cannot take down the scheduler.
func (r *Runner) runSource(ctx context.Context, cfg *sources.Config) (stats database.UpsertStats, err error) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in source %s: %v", cfg.Name, rec)
		}
		r.recordRun(cfg, stats, started, err)
	}()

	items, err := r.collect(ctx, cfg)
	if err != nil {
		return stats, err
	}

	assignIDs(items, cfg)

	if r.summarizer != nil {
		r.summarizer.Annotate(ctx, items)
	}

	stats, err = r.items.UpsertBatch(items, time.Now())
	if err != nil {
		return stats, fmt.Errorf("failed to commit batch: %w", err)
	}

	slog.Info("Source collected", "source", cfg.Name,
		"items", stats.Total, "new", stats.New, "updated", stats.Updated)
	return stats, nil
}

func (r *Runner) collect(ctx context.Context, cfg *sources.Config) ([]item.Item, error) {
	switch cfg.Source.Type {
	case sources.TypeFeed:
		return r.feeds.Run(ctx, cfg)
	case sources.TypeAPI:
		return r.api.Run(ctx, cfg)
	case sources.TypeHTML:
		return r.collectPages(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// collectPages fetches every configured page URL of an HTML source, pausing
// between pages. Failed pages are skipped; the run errors only when every
// page failed.
func (r *Runner) collectPages(ctx context.Context, cfg *sources.Config) ([]item.Item, error) {
	var collected []item.Item
	var lastErr error

	for i, pageURL := range cfg.Source.URLs {
		if i > 0 {
			select {
			case <-time.After(cfg.Settings.GetPageDelay()):
			case <-ctx.Done():
				return collected, ctx.Err()
			}
		}

		doc, err := r.client.Document(ctx, pageURL, cfg.Settings.GetTimeout())
		if err != nil {
			slog.Warn("Page fetch failed", "source", cfg.Name, "url", pageURL, "error", err)
			lastErr = err
			continue
		}
		collected = append(collected, r.engine.Run(doc, cfg)...)
	}

	if len(collected) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all pages failed: %w", lastErr)
	}
	return dedupAcrossPages(collected, cfg.Settings.MaxItems), nil
}

// dedupAcrossPages collapses duplicate titles that appear on more than one
// page of the same source and re-applies the per-source cap.
func dedupAcrossPages(items []item.Item, maxItems int) []item.Item {
	seen := make(map[string]bool, len(items))
	unique := items[:0]
	for _, it := range items {
		if seen[it.Title] {
			continue
		}
		seen[it.Title] = true
		unique = append(unique, it)
		if len(unique) >= maxItems {
			break
		}
	}
	return unique
}

// assignIDs derives the content-addressed identity for every collected item.
// Feed items carry a prefix so they can be aged out separately.
func assignIDs(items []item.Item, cfg *sources.Config) {
	for i := range items {
		if cfg.Source.Type == sources.TypeFeed {
			items[i].ID = item.DeriveFeedID(items[i].Source, items[i].Title)
		} else {
			items[i].ID = item.DeriveID(items[i].Source, items[i].Title)
		}
	}
}

// sweepStaleFlags ages out the new badge on feed articles first seen more
// than a day ago. Sweep failures are logged and swallowed.
func (r *Runner) sweepStaleFlags() {
	expired, err := r.items.ExpireNewFlags(item.FeedIDPrefix, time.Now().Add(-newFlagMaxAge))
	if err != nil {
		slog.Warn("Stale flag sweep failed", "error", err)
		return
	}
	if expired > 0 {
		slog.Info("Aged out feed items", "count", expired)
	}
}

func (r *Runner) recordRun(cfg *sources.Config, stats database.UpsertStats, started time.Time, runErr error) {
	log := database.RunLog{
		Action:       "ingest",
		Source:       cfg.Name,
		Status:       "success",
		ItemsNew:     stats.New,
		ItemsUpdated: stats.Updated,
		ItemsTotal:   stats.Total,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if runErr != nil {
		log.Status = "error"
		log.Error = runErr.Error()
	}
	if err := r.runLogs.Record(log); err != nil {
		slog.Warn("Failed to record ingestion run", "source", cfg.Name, "error", err)
	}
}
