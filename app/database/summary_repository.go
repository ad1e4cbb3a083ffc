package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLSummaryRepository implements SummaryRepository. Summaries are keyed by
// local calendar date; re-running a day replaces that day's row.
type SQLSummaryRepository struct {
	db *DB
}

func NewSummaryRepository(db *DB) *SQLSummaryRepository {
	return &SQLSummaryRepository{db: db}
}

func (r *SQLSummaryRepository) Upsert(summary DailySummary) error {
	insights, err := json.Marshal(summary.Insights)
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(`
		INSERT INTO daily_summaries (date, summary, insights, item_count, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			summary = excluded.summary,
			insights = excluded.insights,
			item_count = excluded.item_count,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, summary.Date, summary.Summary, string(insights), summary.ItemCount,
		summary.Model, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}
	return nil
}

func (r *SQLSummaryRepository) GetByDate(date string) (*DailySummary, error) {
	row := r.db.QueryRow(`
		SELECT date, summary, insights, item_count, model, created_at, updated_at
		FROM daily_summaries WHERE date = ?
	`, date)
	return scanSummary(row)
}

// GetLatest returns the most recent summary of any date, or nil when none
// has ever been written.
func (r *SQLSummaryRepository) GetLatest() (*DailySummary, error) {
	row := r.db.QueryRow(`
		SELECT date, summary, insights, item_count, model, created_at, updated_at
		FROM daily_summaries ORDER BY date DESC LIMIT 1
	`)
	return scanSummary(row)
}

func scanSummary(row *sql.Row) (*DailySummary, error) {
	var s DailySummary
	var insights string

	err := row.Scan(&s.Date, &s.Summary, &insights, &s.ItemCount, &s.Model,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}

	if err := json.Unmarshal([]byte(insights), &s.Insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	return &s, nil
}
