package database

import (
	"context"
	"database/sql"
	"errors"

	"musiccatalog/pkg/models"
)

// GetCollectionEntry returns a user's entry for an item or ErrNotFound.
func (q *Queries) GetCollectionEntry(ctx context.Context, userID, itemID int64) (*models.CollectionEntry, error) {
	row := q.queryRow(ctx, `
		SELECT user_id, music_item_id, preference, is_favourite, note
		FROM user_collections
		WHERE user_id = ? AND music_item_id = ?`, userID, itemID)
	entry, err := scanCollectionEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// InsertCollectionEntry stores a new entry. An existing row for the pair is
// left untouched.
func (q *Queries) InsertCollectionEntry(ctx context.Context, e models.CollectionEntry) error {
	_, err := q.exec(ctx, `
		INSERT INTO user_collections (user_id, music_item_id, preference, is_favourite, note)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, music_item_id) DO NOTHING`,
		e.UserID, e.MusicItemID, string(e.Preference), e.IsFavourite, nullString(e.Note))
	return err
}

// UpdateCollectionEntry overwrites the mutable fields of an entry.
func (q *Queries) UpdateCollectionEntry(ctx context.Context, e models.CollectionEntry) error {
	_, err := q.exec(ctx, `
		UPDATE user_collections SET preference = ?, is_favourite = ?, note = ?
		WHERE user_id = ? AND music_item_id = ?`,
		string(e.Preference), e.IsFavourite, nullString(e.Note), e.UserID, e.MusicItemID)
	return err
}

// DeleteCollectionEntry removes a user's entry for an item.
func (q *Queries) DeleteCollectionEntry(ctx context.Context, userID, itemID int64) error {
	_, err := q.exec(ctx, "DELETE FROM user_collections WHERE user_id = ? AND music_item_id = ?", userID, itemID)
	return err
}

// ListCollectionEntries returns every entry of a user in insertion order.
func (q *Queries) ListCollectionEntries(ctx context.Context, userID int64) ([]models.CollectionEntry, error) {
	rows, err := q.query(ctx, `
		SELECT user_id, music_item_id, preference, is_favourite, note
		FROM user_collections
		WHERE user_id = ?
		ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CollectionEntry
	for rows.Next() {
		entry, err := scanCollectionEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanCollectionEntry(row rowScanner) (*models.CollectionEntry, error) {
	var e models.CollectionEntry
	var preference string
	var note sql.NullString
	if err := row.Scan(&e.UserID, &e.MusicItemID, &preference, &e.IsFavourite, &note); err != nil {
		return nil, err
	}
	e.Preference = models.Preference(preference)
	e.Note = stringPtr(note)
	return &e, nil
}
