package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/krtrends/marketpulse/app/item"
)

// SQLItemRepository implements ItemRepository backed by the items table.
type SQLItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeTouch
)

// classify decides what a batch commit does with one incoming item: insert
// when the ID is unseen, update when the price or description differs from
// the stored row, otherwise only refresh the crawl timestamp and clear the
// new flag. An item stays new for exactly one run; seeing it again unchanged
// confirms it is no longer news.
func classify(existing *Item, incoming item.Item) changeKind {
	if existing == nil {
		return changeInsert
	}
	if !priceEqual(existing.Price, incoming.Price) {
		return changeUpdate
	}
	if existing.Description != incoming.Description {
		return changeUpdate
	}
	return changeTouch
}

func priceEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// UpsertBatch commits one adapter run in a single transaction and reports
// how many items were inserted and how many materially changed. first_seen_at
// is written once at insert and never touched again.
func (r *SQLItemRepository) UpsertBatch(items []item.Item, now time.Time) (UpsertStats, error) {
	stats := UpsertStats{Total: len(items)}

	tx, err := r.db.Begin()
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, incoming := range items {
		existing, err := getForUpdate(tx, incoming.ID)
		if err != nil {
			return stats, err
		}

		switch classify(existing, incoming) {
		case changeInsert:
			_, err = tx.Exec(`
				INSERT INTO items (
					id, kind, source, title, description, price, category,
					source_url, thumbnail_url, author, subcategory, ai_summary,
					published_at, is_new, price_changed, previous_price,
					first_seen_at, crawled_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, NULL, ?, ?)
			`, incoming.ID, incoming.Kind, incoming.Source, incoming.Title,
				incoming.Description, nullInt(incoming.Price), incoming.Category,
				incoming.SourceURL, incoming.ThumbnailURL, incoming.Author,
				incoming.Subcategory, incoming.AISummary, nullTime(incoming.PublishedAt),
				now, now)
			if err != nil {
				return stats, fmt.Errorf("failed to insert item %s: %w", incoming.ID, err)
			}
			stats.New++

		case changeUpdate:
			priceChanged := !priceEqual(existing.Price, incoming.Price)
			var previousPrice *int64
			if priceChanged {
				previousPrice = existing.Price
			}

			_, err = tx.Exec(`
				UPDATE items SET
					kind = ?, source = ?, title = ?, description = ?, price = ?,
					category = ?, source_url = ?, thumbnail_url = ?, author = ?,
					subcategory = ?, ai_summary = ?, published_at = ?,
					is_new = 0, price_changed = ?, previous_price = ?,
					crawled_at = ?
				WHERE id = ?
			`, incoming.Kind, incoming.Source, incoming.Title, incoming.Description,
				nullInt(incoming.Price), incoming.Category, incoming.SourceURL,
				incoming.ThumbnailURL, incoming.Author, incoming.Subcategory,
				incoming.AISummary, nullTime(incoming.PublishedAt),
				priceChanged, nullInt(previousPrice), now, incoming.ID)
			if err != nil {
				return stats, fmt.Errorf("failed to update item %s: %w", incoming.ID, err)
			}
			stats.Updated++

		case changeTouch:
			if _, err := tx.Exec(`UPDATE items SET is_new = 0, crawled_at = ? WHERE id = ?`, now, incoming.ID); err != nil {
				return stats, fmt.Errorf("failed to touch item %s: %w", incoming.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit batch: %w", err)
	}
	return stats, nil
}

func getForUpdate(tx *sql.Tx, id string) (*Item, error) {
	var stored Item
	var price sql.NullInt64

	err := tx.QueryRow(`SELECT id, price, description FROM items WHERE id = ?`, id).
		Scan(&stored.ID, &price, &stored.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up item %s: %w", id, err)
	}

	if price.Valid {
		stored.Price = &price.Int64
	}
	return &stored, nil
}

const selectItemColumns = `
	SELECT id, kind, source, title, description, price, category,
		source_url, thumbnail_url, author, subcategory, ai_summary,
		published_at, is_new, price_changed, previous_price,
		first_seen_at, crawled_at
	FROM items`

// GetRecentItems returns items crawled at or after since, newest first.
func (r *SQLItemRepository) GetRecentItems(since time.Time, limit int) ([]Item, error) {
	rows, err := r.db.Query(selectItemColumns+`
		WHERE crawled_at >= ?
		ORDER BY crawled_at DESC, id
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent items: %w", err)
	}
	return scanItems(rows)
}

// GetRecentItemsByKind is GetRecentItems restricted to one item kind, so a
// burst of articles cannot crowd listings out of a bounded result (or the
// other way round).
func (r *SQLItemRepository) GetRecentItemsByKind(kind string, since time.Time, limit int) ([]Item, error) {
	rows, err := r.db.Query(selectItemColumns+`
		WHERE kind = ? AND crawled_at >= ?
		ORDER BY crawled_at DESC, id
		LIMIT ?
	`, kind, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent %s items: %w", kind, err)
	}
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price, previousPrice sql.NullInt64
		var publishedAt sql.NullTime

		err := rows.Scan(&it.ID, &it.Kind, &it.Source, &it.Title, &it.Description,
			&price, &it.Category, &it.SourceURL, &it.ThumbnailURL, &it.Author,
			&it.Subcategory, &it.AISummary, &publishedAt, &it.IsNew,
			&it.PriceChanged, &previousPrice, &it.FirstSeenAt, &it.CrawledAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		if price.Valid {
			it.Price = &price.Int64
		}
		if previousPrice.Valid {
			it.PreviousPrice = &previousPrice.Int64
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			it.PublishedAt = &t
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLItemRepository) GetItemCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *SQLItemRepository) GetSourceCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT source, COUNT(*) FROM items GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

// ExpireNewFlags clears is_new on items whose ID carries the given prefix and
// that were first seen before the cutoff. Used to age out feed articles.
func (r *SQLItemRepository) ExpireNewFlags(idPrefix string, before time.Time) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE items SET is_new = 0
		WHERE is_new = 1 AND id LIKE ? || '%' AND first_seen_at < ?
	`, idPrefix, before)
	if err != nil {
		return 0, fmt.Errorf("failed to expire new flags: %w", err)
	}
	return res.RowsAffected()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
