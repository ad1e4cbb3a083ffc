package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krtrends/marketpulse/app/database"
)

// EmptyDaySummary is stored when the last 24 hours produced nothing.
const EmptyDaySummary = "오늘 수집된 뉴스가 없습니다."

const maxItems = 50

// Service assembles and persists one summary per local calendar date.
type Service struct {
	items       database.ItemRepository
	summaries   database.SummaryRepository
	synthesizer Synthesizer
	fallback    TemplateFallback
}

func NewService(items database.ItemRepository, summaries database.SummaryRepository, synthesizer Synthesizer) *Service {
	return &Service{items: items, summaries: summaries, synthesizer: synthesizer}
}

// Run synthesizes the summary for the date of now and upserts it; running
// twice on the same date replaces the earlier summary.
func (s *Service) Run(ctx context.Context, now time.Time) (*database.DailySummary, error) {
	items, err := s.items.GetRecentItems(now.Add(-24*time.Hour), maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent items: %w", err)
	}

	var text, model string
	var insights []string

	if len(items) == 0 {
		text = EmptyDaySummary
	} else {
		text, insights, model, err = s.synthesizer.Synthesize(ctx, items)
		if err != nil {
			slog.Warn("Synthesis failed, using template fallback", "error", err)
			text, insights, model, _ = s.fallback.Synthesize(ctx, items)
		}
	}

	record := database.DailySummary{
		Date:      now.Format("2006-01-02"),
		Summary:   text,
		Insights:  insights,
		ItemCount: len(items),
		Model:     model,
	}
	if err := s.summaries.Upsert(record); err != nil {
		return nil, fmt.Errorf("failed to store daily summary: %w", err)
	}

	slog.Info("Daily summary stored", "date", record.Date, "items", record.ItemCount, "model", model)
	return &record, nil
}
