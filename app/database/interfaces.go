package database

import (
	"time"

	"github.com/krtrends/marketpulse/app/item"
)

// UpsertStats summarizes one batch commit.
type UpsertStats struct {
	New     int
	Updated int
	Total   int
}

type ItemRepository interface {
	UpsertBatch(items []item.Item, now time.Time) (UpsertStats, error)
	GetRecentItems(since time.Time, limit int) ([]Item, error)
	GetRecentItemsByKind(kind string, since time.Time, limit int) ([]Item, error)
	GetItemCount() (int, error)
	GetSourceCounts() (map[string]int, error)

	ExpireNewFlags(idPrefix string, before time.Time) (int64, error)
}

type RunLogRepository interface {
	Record(log RunLog) error
	GetRecent(limit int) ([]RunLog, error)
}

type SummaryRepository interface {
	Upsert(summary DailySummary) error
	GetByDate(date string) (*DailySummary, error)
	GetLatest() (*DailySummary, error)
}

type SubscriberRepository interface {
	GetActiveSubscribers() ([]Subscriber, error)
}
