package database

import (
	"fmt"
)

// SQLSubscriberRepository implements SubscriberRepository. Subscriptions are
// managed out of band; the pipeline only reads active recipients.
type SQLSubscriberRepository struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *SQLSubscriberRepository {
	return &SQLSubscriberRepository{db: db}
}

func (r *SQLSubscriberRepository) GetActiveSubscribers() ([]Subscriber, error) {
	rows, err := r.db.Query(`
		SELECT id, email, active, created_at
		FROM subscribers
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}
