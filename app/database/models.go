package database

import (
	"time"
)

// Item is a stored catalog entry: the canonical item fields plus the change
// tracking columns maintained by the upsert.
type Item struct {
	ID            string
	Kind          string
	Source        string
	Title         string
	Description   string
	Price         *int64
	Category      string
	SourceURL     string
	ThumbnailURL  string
	Author        string
	Subcategory   string
	AISummary     string
	PublishedAt   *time.Time
	IsNew         bool
	PriceChanged  bool
	PreviousPrice *int64
	FirstSeenAt   time.Time
	CrawledAt     time.Time
}

// RunLog records one pipeline run (ingest, summary or digest) for the stats
// endpoint. Append only. The item columns count collected content; the
// delivery columns are only populated by digest runs.
type RunLog struct {
	ID           int64
	Action       string
	Source       string
	Status       string
	ItemsNew     int
	ItemsUpdated int
	ItemsTotal   int
	Sent         int
	Failed       int
	Subscribers  int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// DailySummary is one synthesized digest text per local calendar date.
type DailySummary struct {
	Date      string // YYYY-MM-DD in the configured timezone
	Summary   string
	Insights  []string
	ItemCount int
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Subscriber struct {
	ID        int64
	Email     string
	Active    bool
	CreatedAt time.Time
}
