package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"musiccatalog/pkg/models"
)

const musicItemColumns = "id, title, item_type, release_year, duration_seconds"

// InsertMusicItem stores a new item and returns its ID.
func (q *Queries) InsertMusicItem(ctx context.Context, item models.MusicItem) (int64, error) {
	result, err := q.exec(ctx, `
		INSERT INTO music_items (title, item_type, release_year, duration_seconds)
		VALUES (?, ?, ?, ?)`,
		item.Title, string(item.ItemType), nullInt(item.ReleaseYear), nullInt(item.DurationSeconds))
	if err != nil {
		q.logger.WithError(err).WithField("title", item.Title).Error("Failed to insert music item")
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateMusicItem overwrites the scalar columns of an existing item.
func (q *Queries) UpdateMusicItem(ctx context.Context, item models.MusicItem) error {
	_, err := q.exec(ctx, `
		UPDATE music_items SET title = ?, release_year = ?, duration_seconds = ?
		WHERE id = ?`,
		item.Title, nullInt(item.ReleaseYear), nullInt(item.DurationSeconds), item.ID)
	if err != nil {
		q.logger.WithError(err).WithField("music_item_id", item.ID).Error("Failed to update music item")
	}
	return err
}

// SetMusicItemDuration sets only duration_seconds.
func (q *Queries) SetMusicItemDuration(ctx context.Context, id int64, seconds int) error {
	_, err := q.exec(ctx, "UPDATE music_items SET duration_seconds = ? WHERE id = ?", seconds, id)
	return err
}

// GetMusicItem returns a single item by ID or ErrNotFound.
func (q *Queries) GetMusicItem(ctx context.Context, id int64) (*models.MusicItem, error) {
	row := q.queryRow(ctx, "SELECT "+musicItemColumns+" FROM music_items WHERE id = ?", id)
	item, err := scanMusicItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		q.logger.WithError(err).WithField("music_item_id", id).Error("Failed to get music item")
		return nil, err
	}
	return item, nil
}

// GetMusicItemsByIDs returns the items matching ids in ID order. Unknown IDs
// are simply absent from the result.
func (q *Queries) GetMusicItemsByIDs(ctx context.Context, ids []int64) ([]models.MusicItem, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := q.query(ctx, "SELECT "+musicItemColumns+" FROM music_items WHERE id IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMusicItemRows(rows)
}

// ListMusicItems returns items matching every supplied filter, ordered by ID.
// The title filter is a case-insensitive substring match.
func (q *Queries) ListMusicItems(ctx context.Context, filter models.ItemFilter) ([]models.MusicItem, error) {
	var where []string
	var args []any

	if filter.TitleContains != "" {
		where = append(where, `unicode_lower(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.TitleContains))+"%")
	}
	if filter.GenreID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM music_item_genres g WHERE g.music_item_id = music_items.id AND g.genre_id = ?)")
		args = append(args, filter.GenreID)
	}
	if filter.ArtistID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM music_item_artists a WHERE a.music_item_id = music_items.id AND a.artist_id = ?)")
		args = append(args, filter.ArtistID)
	}

	query := "SELECT " + musicItemColumns + " FROM music_items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		q.logger.WithError(err).WithField("filter", filter).Error("Failed to list music items")
		return nil, err
	}
	defer rows.Close()
	return scanMusicItemRows(rows)
}

// DeleteMusicItem removes an item; associations cascade. It reports whether a
// row was deleted.
func (q *Queries) DeleteMusicItem(ctx context.Context, id int64) (bool, error) {
	result, err := q.exec(ctx, "DELETE FROM music_items WHERE id = ?", id)
	if err != nil {
		q.logger.WithError(err).WithField("music_item_id", id).Error("Failed to delete music item")
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMusicItem(row rowScanner) (*models.MusicItem, error) {
	var item models.MusicItem
	var itemType string
	var releaseYear, duration sql.NullInt64
	if err := row.Scan(&item.ID, &item.Title, &itemType, &releaseYear, &duration); err != nil {
		return nil, err
	}
	item.ItemType = models.ItemType(itemType)
	item.ReleaseYear = intPtr(releaseYear)
	item.DurationSeconds = intPtr(duration)
	return &item, nil
}

// scanMusicItemRows iterates a music_items result set. Callers must have
// already deferred rows.Close().
func scanMusicItemRows(rows *sql.Rows) ([]models.MusicItem, error) {
	var items []models.MusicItem
	for rows.Next() {
		item, err := scanMusicItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan music item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
