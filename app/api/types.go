package api

import (
	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/digest"
	"github.com/krtrends/marketpulse/app/ingest"
	"github.com/krtrends/marketpulse/app/summary"
)

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	items      database.ItemRepository
	runLogs    database.RunLogRepository
	summaries  database.SummaryRepository
	runner     *ingest.Runner
	summarySvc *summary.Service
	dispatcher *digest.Dispatcher
}

// Trigger actions accepted by the run endpoint.
const (
	ActionRSS     = "rss"
	ActionScrape  = "scrape"
	ActionSummary = "summary"
	ActionAll     = "all"
)

type runLogEntry struct {
	Action       string `json:"action"`
	Source       string `json:"source,omitempty"`
	Status       string `json:"status"`
	ItemsNew     int    `json:"items_new"`
	ItemsUpdated int    `json:"items_updated"`
	ItemsTotal   int    `json:"items_total"`
	Sent         int    `json:"sent,omitempty"`
	Failed       int    `json:"failed,omitempty"`
	Subscribers  int    `json:"subscribers,omitempty"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
}

type statsResponse struct {
	TotalItems   int            `json:"total_items"`
	SourceCounts map[string]int `json:"source_counts"`
	RecentRuns   []runLogEntry  `json:"recent_runs"`
	TodaySummary string         `json:"today_summary,omitempty"`
}
