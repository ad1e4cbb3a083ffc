package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krtrends/marketpulse/app/cfg"
	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/digest"
	"github.com/krtrends/marketpulse/app/ingest"
	"github.com/krtrends/marketpulse/app/sources"
	"github.com/krtrends/marketpulse/app/summary"
)

func NewHandler(
	items database.ItemRepository,
	runLogs database.RunLogRepository,
	summaries database.SummaryRepository,
	runner *ingest.Runner,
	summarySvc *summary.Service,
	dispatcher *digest.Dispatcher,
) *Handler {
	return &Handler{
		items:      items,
		runLogs:    runLogs,
		summaries:  summaries,
		runner:     runner,
		summarySvc: summarySvc,
		dispatcher: dispatcher,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.items.GetItemCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_item_count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sourceCounts, err := h.items.GetSourceCounts()
	if err != nil {
		slog.Error("Database error", "operation", "get_source_counts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	logs, err := h.runLogs.GetRecent(20)
	if err != nil {
		slog.Error("Database error", "operation", "get_run_logs", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		TotalItems:   total,
		SourceCounts: sourceCounts,
		RecentRuns:   make([]runLogEntry, 0, len(logs)),
	}
	for _, log := range logs {
		resp.RecentRuns = append(resp.RecentRuns, runLogEntry{
			Action:       log.Action,
			Source:       log.Source,
			Status:       log.Status,
			ItemsNew:     log.ItemsNew,
			ItemsUpdated: log.ItemsUpdated,
			ItemsTotal:   log.ItemsTotal,
			Sent:         log.Sent,
			Failed:       log.Failed,
			Subscribers:  log.Subscribers,
			Error:        log.Error,
			StartedAt:    log.StartedAt.Format(time.RFC3339),
			FinishedAt:   log.FinishedAt.Format(time.RFC3339),
		})
	}

	if today, err := h.summaries.GetByDate(time.Now().Format("2006-01-02")); err == nil && today != nil {
		resp.TodaySummary = today.Summary
	}

	c.JSON(http.StatusOK, resp)
}

// Run triggers a pipeline action synchronously and reports what ran. The
// scheduler covers routine operation; this endpoint exists for manual and
// external triggering.
func (h *Handler) Run(c *gin.Context) {
	action := c.Query("action")
	if action == "" {
		action = c.PostForm("action")
	}
	if action == "" {
		action = ActionAll
	}

	ctx := c.Request.Context()
	results := gin.H{}

	switch action {
	case ActionRSS:
		results["ingest"] = h.runner.Run(ctx, sources.TypeFeed)

	case ActionScrape:
		results["ingest"] = h.runner.Run(ctx, sources.TypeHTML, sources.TypeAPI)

	case ActionSummary:
		if !h.runSummaryAndDigest(c, results) {
			return
		}

	case ActionAll:
		results["ingest"] = h.runner.Run(ctx)
		if !h.runSummaryAndDigest(c, results) {
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + action})
		return
	}

	slog.Info("Manual run completed", "action", action)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "action": action, "results": results})
}

func (h *Handler) runSummaryAndDigest(c *gin.Context, results gin.H) bool {
	ctx := c.Request.Context()
	now := time.Now()

	record, err := h.summarySvc.Run(ctx, now)
	if err != nil {
		slog.Error("Summary run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return false
	}
	results["summary"] = gin.H{"date": record.Date, "items": record.ItemCount}

	sent, err := h.dispatcher.Run(ctx, now)
	if err != nil {
		slog.Error("Digest run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "digest failed"})
		return false
	}
	results["digest"] = sent
	return true
}
