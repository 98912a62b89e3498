package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultListingCapacity bounds the catalog cache when no override is
// configured.
const DefaultListingCapacity = 20

// CacheListing upserts a listing snapshot keyed by listing id, stamps its
// viewed_at to now, and evicts the least-recently-viewed entries until the
// cache is at or below capacity. Upsert and eviction commit together.
func (db *DB) CacheListing(l *ListingSnapshot, capacity int) error {
	if capacity <= 0 {
		capacity = DefaultListingCapacity
	}
	images, err := json.Marshal(imagesOrEmpty(l.Images))
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Stamp a strictly increasing viewed_at so back-to-back views within
	// the same millisecond still order correctly.
	now := time.Now().UnixMilli()
	var latest int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(viewed_at), 0) FROM listings_cache`).Scan(&latest); err != nil {
		return fmt.Errorf("read latest viewed_at: %w", err)
	}
	if now <= latest {
		now = latest + 1
	}
	l.ViewedAt = now
	if _, err := tx.Exec(`
		INSERT INTO listings_cache (id, title, price, currency, images, location, category, seller_name, condition, viewed_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			currency = excluded.currency,
			images = excluded.images,
			location = excluded.location,
			category = excluded.category,
			seller_name = excluded.seller_name,
			condition = excluded.condition,
			viewed_at = excluded.viewed_at`,
		l.ID, l.Title, l.Price, l.Currency, string(images), l.Location, l.Category, l.SellerName, l.Condition, now, now); err != nil {
		return fmt.Errorf("upsert listing %q: %w", l.ID, err)
	}

	// Evict oldest-by-viewed_at entries beyond capacity, ties broken by
	// insertion order (rowid).
	if _, err := tx.Exec(`
		DELETE FROM listings_cache WHERE id IN (
			SELECT id FROM listings_cache
			ORDER BY viewed_at ASC, rowid ASC
			LIMIT MAX((SELECT COUNT(*) FROM listings_cache) - ?, 0)
		)`, capacity); err != nil {
		return fmt.Errorf("evict listings: %w", err)
	}

	return tx.Commit()
}

// CachedListings returns all cached snapshots, most recently viewed first.
func (db *DB) CachedListings() ([]ListingSnapshot, error) {
	rows, err := db.Query(`
		SELECT id, title, price, currency, images, location, category, seller_name, condition, viewed_at
		FROM listings_cache
		ORDER BY viewed_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	listings := []ListingSnapshot{}
	for rows.Next() {
		var (
			l      ListingSnapshot
			images string
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Price, &l.Currency, &images, &l.Location, &l.Category, &l.SellerName, &l.Condition, &l.ViewedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
			l.Images = nil
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CachedListing returns one snapshot by listing id, or nil if not cached.
func (db *DB) CachedListing(id string) (*ListingSnapshot, error) {
	var (
		l      ListingSnapshot
		images string
	)
	err := db.QueryRow(`
		SELECT id, title, price, currency, images, location, category, seller_name, condition, viewed_at
		FROM listings_cache WHERE id = ?`, id).
		Scan(&l.ID, &l.Title, &l.Price, &l.Currency, &images, &l.Location, &l.Category, &l.SellerName, &l.Condition, &l.ViewedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
		l.Images = nil
	}
	return &l, nil
}

// ListingCount returns the number of cached snapshots.
func (db *DB) ListingCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM listings_cache`).Scan(&count)
	return count, err
}

func imagesOrEmpty(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
