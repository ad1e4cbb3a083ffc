// Package digest renders the daily email and delivers it to the active
// subscriber list.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/mail"
)

const (
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusSkipped = "skipped"
)

// Result reports one dispatch run.
type Result struct {
	Status string `json:"status"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
	Reason string `json:"reason,omitempty"`
}

type Dispatcher struct {
	items       database.ItemRepository
	summaries   database.SummaryRepository
	subscribers database.SubscriberRepository
	runLogs     database.RunLogRepository
	sender      mail.Sender
	builder     *Builder
}

func NewDispatcher(
	items database.ItemRepository,
	summaries database.SummaryRepository,
	subscribers database.SubscriberRepository,
	runLogs database.RunLogRepository,
	sender mail.Sender,
	builder *Builder,
) *Dispatcher {
	return &Dispatcher{
		items:       items,
		summaries:   summaries,
		subscribers: subscribers,
		runLogs:     runLogs,
		sender:      sender,
		builder:     builder,
	}
}

// Run builds today's digest and sends it to every active subscriber. The run
// is skipped entirely when mail delivery is not configured, there is nobody
// to mail or nothing to say; a single failed recipient does not abort the
// rest.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Result, error) {
	started := now

	if d.sender == nil {
		return d.skip(started, "email delivery not configured")
	}

	recipients, err := d.subscribers.GetActiveSubscribers()
	if err != nil {
		return Result{}, fmt.Errorf("failed to load subscribers: %w", err)
	}
	if len(recipients) == 0 {
		return d.skip(started, "no active subscribers")
	}

	// Listings and articles are bounded separately so a busy news day cannot
	// push the product section out of the digest.
	since := now.Add(-24 * time.Hour)
	listings, err := d.items.GetRecentItemsByKind(string(item.KindListing), since, maxListings)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load recent listings: %w", err)
	}
	articles, err := d.items.GetRecentItemsByKind(string(item.KindArticle), since, maxArticles)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load recent articles: %w", err)
	}
	if len(listings)+len(articles) == 0 {
		return d.skip(started, "no content in the last 24 hours")
	}

	date := now.Format("2006-01-02")
	summary, err := d.summaries.GetByDate(date)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load daily summary: %w", err)
	}
	if summary == nil {
		// Today's synthesis may not have run yet; the most recent summary
		// is still better than an empty section.
		if summary, err = d.summaries.GetLatest(); err != nil {
			return Result{}, fmt.Errorf("failed to load latest summary: %w", err)
		}
	}

	subject, body, err := d.builder.Build(date, summary, listings, articles)
	if err != nil {
		return Result{}, err
	}

	result := Result{Status: StatusSent}
	for _, recipient := range recipients {
		if err := d.sender.Send(ctx, recipient.Email, subject, body); err != nil {
			slog.Warn("Digest delivery failed", "email", recipient.Email, "error", err)
			result.Failed++
			continue
		}
		result.Sent++
	}
	if result.Failed > 0 {
		result.Status = StatusPartial
	}

	d.record(database.RunLog{
		Action:      "digest",
		Status:      result.Status,
		Sent:        result.Sent,
		Failed:      result.Failed,
		Subscribers: len(recipients),
		ItemsTotal:  len(listings) + len(articles),
		StartedAt:   started,
		FinishedAt:  time.Now(),
	})

	slog.Info("Digest dispatched", "date", date,
		"sent", result.Sent, "failed", result.Failed, "subscribers", len(recipients),
		"listings", len(listings), "articles", len(articles))
	return result, nil
}

func (d *Dispatcher) skip(started time.Time, reason string) (Result, error) {
	slog.Info("Digest skipped", "reason", reason)
	d.record(database.RunLog{
		Action:     "digest",
		Status:     StatusSkipped,
		Error:      reason,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return Result{Status: StatusSkipped, Reason: reason}, nil
}

func (d *Dispatcher) record(log database.RunLog) {
	if err := d.runLogs.Record(log); err != nil {
		slog.Warn("Failed to record digest run", "error", err)
	}
}
