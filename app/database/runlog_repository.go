package database

import (
	"fmt"
)

// SQLRunLogRepository implements RunLogRepository. Run logs are append only;
// nothing updates or deletes them.
type SQLRunLogRepository struct {
	db *DB
}

func NewRunLogRepository(db *DB) *SQLRunLogRepository {
	return &SQLRunLogRepository{db: db}
}

func (r *SQLRunLogRepository) Record(log RunLog) error {
	_, err := r.db.Exec(`
		INSERT INTO run_logs (
			action, source, status, items_new, items_updated, items_total,
			sent, failed, subscribers, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.Action, log.Source, log.Status, log.ItemsNew, log.ItemsUpdated,
		log.ItemsTotal, log.Sent, log.Failed, log.Subscribers,
		log.Error, log.StartedAt, log.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record run log: %w", err)
	}
	return nil
}

func (r *SQLRunLogRepository) GetRecent(limit int) ([]RunLog, error) {
	rows, err := r.db.Query(`
		SELECT id, action, source, status, items_new, items_updated,
			items_total, sent, failed, subscribers, error,
			started_at, finished_at
		FROM run_logs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run logs: %w", err)
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		err := rows.Scan(&l.ID, &l.Action, &l.Source, &l.Status, &l.ItemsNew,
			&l.ItemsUpdated, &l.ItemsTotal, &l.Sent, &l.Failed, &l.Subscribers,
			&l.Error, &l.StartedAt, &l.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
